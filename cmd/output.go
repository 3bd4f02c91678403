// ABOUTME: Shared output helpers for human and JSON rendering
// ABOUTME: Formats numbers with thousands separators and maps errors to exit codes

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Exit codes shared by every command
const (
	exitOK    = 0
	exitNo    = 1
	exitError = 2
)

var printer = message.NewPrinter(language.English)

// runner is the testable body of a command
type runner func(ctx context.Context, w io.Writer, args []string) int

// run adapts a runner to cobra, wiring signals and the exit code
func run(fn runner) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		exitCode := fn(ctx, cmd.OutOrStdout(), args)
		cancel()
		if exitCode != exitOK {
			os.Exit(exitCode)
		}
	}
}

// fail prints err and returns the error exit code
func fail(w io.Writer, err error) int {
	fmt.Fprintf(w, "Error: %v\n", err)
	return exitError
}

// formatJSON renders v as indented JSON
func formatJSON(v interface{}) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(data)
}

// emit writes v as JSON when --json is set, otherwise the human rendering
func emit(w io.Writer, v interface{}, human func() string) int {
	if IsJSONOutput() {
		fmt.Fprintln(w, formatJSON(v))
	} else {
		fmt.Fprintln(w, human())
	}
	return exitOK
}

// formatPoints renders a balance like "1,250 pts"
func formatPoints(n int) string {
	return printer.Sprintf("%d pts", n)
}

// formatNumber renders n with thousands separators
func formatNumber(n int) string {
	return printer.Sprintf("%d", n)
}

// formatDocument renders a loosely typed response as sorted key/value lines
func formatDocument(doc map[string]interface{}) string {
	keys := make([]string, 0, len(doc))
	width := 0
	for k := range doc {
		keys = append(keys, k)
		if len(k) > width {
			width = len(k)
		}
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%-*s  %s", width+1, k+":", formatValue(doc[k]))
	}
	return sb.String()
}

func formatValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case float64:
		if x == float64(int64(x)) {
			return formatNumber(int(x))
		}
		return printer.Sprintf("%.2f", x)
	case string:
		if x == "" {
			return "-"
		}
		return x
	case map[string]interface{}, []interface{}:
		data, _ := json.Marshal(x)
		return string(data)
	default:
		return fmt.Sprint(x)
	}
}
