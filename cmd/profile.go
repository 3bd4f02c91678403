// ABOUTME: Profile and settings commands for the current user
// ABOUTME: A username change stores the new token the backend issues

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/shelfhq/shelf/internal/client"
)

var (
	profileFields   map[string]string
	currentPassword string
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "View and edit profiles",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show your profile",
	Args:  cobra.NoArgs,
	Run:   run(func(ctx context.Context, w io.Writer, _ []string) int { return runProfileShow(ctx, w) }),
}

var profileUpdateCmd = &cobra.Command{
	Use:   "update --set field=value...",
	Short: "Update profile fields",
	Long:  "Update profile fields. Accepted fields: " + strings.Join(client.ProfileFields, ", "),
	Args:  cobra.NoArgs,
	Run:   run(func(ctx context.Context, w io.Writer, _ []string) int { return runProfileUpdate(ctx, w, profileFields) }),
}

var profileUsernameCmd = &cobra.Command{
	Use:   "username NEW_USERNAME",
	Short: "Change your username",
	Args:  cobra.ExactArgs(1),
	Run:   run(runChangeUsername),
}

var profilePublicCmd = &cobra.Command{
	Use:   "public USERNAME",
	Short: "Show another user's public profile",
	Args:  cobra.ExactArgs(1),
	Run:   run(runPublicProfile),
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "View and change reader settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show your settings",
	Args:  cobra.NoArgs,
	Run:   run(func(ctx context.Context, w io.Writer, _ []string) int { return runSettingsShow(ctx, w) }),
}

var settingsSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Change one setting",
	Long: `Change one setting. VALUE is parsed as JSON when possible, so
"true", "14" and '"dark"' keep their types; anything else is sent as a string.`,
	Args: cobra.ExactArgs(2),
	Run:  run(runSettingsSet),
}

func init() {
	profileUpdateCmd.Flags().StringToStringVar(&profileFields, "set", nil, "Field to update, as field=value (repeatable)")
	_ = profileUpdateCmd.MarkFlagRequired("set")
	profileUsernameCmd.Flags().StringVar(&currentPassword, "password", "", "Your current password")
	_ = profileUsernameCmd.MarkFlagRequired("password")

	profileCmd.AddCommand(profileShowCmd, profileUpdateCmd, profileUsernameCmd, profilePublicCmd)
	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd)
	rootCmd.AddCommand(profileCmd, settingsCmd)
}

func runProfileShow(ctx context.Context, w io.Writer) int {
	return withRuntime(ctx, w, func(rt *runtime) int {
		doc, err := rt.client.Profile(ctx)
		if err != nil {
			return fail(w, err)
		}
		return emit(w, doc, func() string { return formatDocument(doc) })
	})
}

func runProfileUpdate(ctx context.Context, w io.Writer, fields map[string]string) int {
	return withRuntime(ctx, w, func(rt *runtime) int {
		doc, err := rt.client.UpdateProfile(ctx, fields)
		if err != nil {
			return fail(w, err)
		}
		return emit(w, doc, func() string { return "Profile updated\n\n" + formatDocument(doc) })
	})
}

// runChangeUsername renames the account and swaps in the reissued token,
// since the old token names the old user
func runChangeUsername(ctx context.Context, w io.Writer, args []string) int {
	return withRuntime(ctx, w, func(rt *runtime) int {
		doc, err := rt.client.ChangeUsername(ctx, args[0], currentPassword)
		if err != nil {
			return fail(w, err)
		}
		if token := doc.String("access_token"); token != "" {
			if err := rt.session.SetToken(ctx, token); err != nil {
				return fail(w, err)
			}
			rt.session.SyncUserData(ctx)
		} else {
			log.Warn().Msg("username change response carried no token; old session kept")
		}
		delete(doc, "access_token")
		return emit(w, doc, func() string { return "Username changed to " + args[0] })
	})
}

func runPublicProfile(ctx context.Context, w io.Writer, args []string) int {
	return withRuntime(ctx, w, func(rt *runtime) int {
		p, err := rt.client.PublicProfile(ctx, args[0])
		if err != nil {
			return fail(w, err)
		}
		return emit(w, p, func() string {
			var sb strings.Builder
			fmt.Fprintf(&sb, "%s (%s)", p.Username, p.Role)
			if p.IsFollowing {
				sb.WriteString("  following")
			}
			if p.Bio != "" {
				fmt.Fprintf(&sb, "\n%s", p.Bio)
			}
			fmt.Fprintf(&sb, "\n\nFollowers:  %s\nFollowing:  %s\nBooks:      %s\nSales:      %s",
				formatNumber(p.FollowersCount), formatNumber(p.FollowingCount),
				formatNumber(p.TotalBooks), formatNumber(p.TotalSales))
			if p.JoinedDate != "" {
				fmt.Fprintf(&sb, "\nJoined:     %s", p.JoinedDate)
			}
			return sb.String()
		})
	})
}

func runSettingsShow(ctx context.Context, w io.Writer) int {
	return withRuntime(ctx, w, func(rt *runtime) int {
		s, err := rt.client.Settings(ctx)
		if err != nil {
			return fail(w, err)
		}
		return emit(w, s, func() string {
			if len(s) == 0 {
				return "No settings"
			}
			return formatDocument(s)
		})
	})
}

func runSettingsSet(ctx context.Context, w io.Writer, args []string) int {
	value := parseSettingValue(args[1])
	return withRuntime(ctx, w, func(rt *runtime) int {
		s, err := rt.client.UpdateSetting(ctx, args[0], value)
		if err != nil {
			return fail(w, err)
		}
		return emit(w, s, func() string { return fmt.Sprintf("%s = %s", args[0], formatValue(s[args[0]])) })
	})
}

// parseSettingValue keeps JSON scalars typed and falls back to the raw string
func parseSettingValue(raw string) interface{} {
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}
