// ABOUTME: Tests that the fake backend honors the wire contract the client relies on
// ABOUTME: Drives it through the real API client

package stubbackend_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shelfhq/shelf/internal/client"
	"github.com/shelfhq/shelf/internal/testsupport/stubbackend"
)

func TestStub_LoginAndMe(t *testing.T) {
	ctx := context.Background()
	srv := stubbackend.Start(t)
	_, err := srv.AddUser("reader", "hunter22", 200)
	require.NoError(t, err)

	c := client.New(srv.URL)
	tok, err := c.Login(ctx, &client.Credentials{Username: "reader", Password: "hunter22"})
	require.NoError(t, err)

	user, err := c.FetchCurrentUser(ctx, tok.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "reader", user.Username())
	points, ok := user.Points()
	require.True(t, ok)
	require.Equal(t, 200, points)
}

func TestStub_BadPasswordUsesDetail(t *testing.T) {
	srv := stubbackend.Start(t)
	_, err := srv.AddUser("reader", "hunter22", 0)
	require.NoError(t, err)

	_, err = client.New(srv.URL).Login(context.Background(), &client.Credentials{Username: "reader", Password: "nope"})
	require.ErrorIs(t, err, client.ErrUnauthorized)
	require.Equal(t, "Incorrect username or password", err.Error())
}

func TestStub_RejectsForgedToken(t *testing.T) {
	srv := stubbackend.Start(t)
	_, err := srv.AddUser("reader", "pw", 0)
	require.NoError(t, err)

	other := stubbackend.New(stubbackend.WithSecret("different"))
	forged := other.IssueToken("reader")

	_, err = client.New(srv.URL).FetchCurrentUser(context.Background(), forged)
	require.ErrorIs(t, err, client.ErrUnauthorized)
	require.Equal(t, "Could not validate credentials", err.Error())
}

func TestStub_RegisterDuplicate(t *testing.T) {
	ctx := context.Background()
	srv := stubbackend.Start(t)
	c := client.New(srv.URL)

	req := &client.RegisterRequest{Username: "newbie", Email: "newbie@example.com", Password: "pw123456"}
	_, err := c.Register(ctx, req)
	require.NoError(t, err)

	_, err = c.Register(ctx, req)
	require.ErrorIs(t, err, client.ErrServer)
	require.Equal(t, "Username already registered", err.Error())
}

func TestStub_PurchaseFlow(t *testing.T) {
	ctx := context.Background()
	srv := stubbackend.Start(t)
	token, err := srv.AddUser("reader", "pw", 100)
	require.NoError(t, err)
	c := client.New(srv.URL, client.WithTokenSource(client.StaticToken(token)))

	res, err := c.PurchaseBook(ctx, stubbackend.BookPrince)
	require.NoError(t, err)
	require.Equal(t, 50, res.PricePaid)
	require.Equal(t, 50, res.RemainingPoints)
	require.Equal(t, 50, srv.Points("reader"))
	require.True(t, srv.Owns("reader", stubbackend.BookPrince))

	own, err := c.CheckOwnership(ctx, stubbackend.BookPrince)
	require.NoError(t, err)
	require.True(t, own.Owned)

	_, err = c.PurchaseBook(ctx, stubbackend.BookPrince)
	require.Error(t, err)
	require.Equal(t, "You already own this book", err.Error())

	_, err = c.PurchaseBook(ctx, stubbackend.BookHabits)
	require.Error(t, err)
	require.Equal(t, "Insufficient points", err.Error())

	lib, err := c.Library(ctx, 0, 10)
	require.NoError(t, err)
	require.Equal(t, 1, lib.Total)
	require.Equal(t, "The Little Prince", lib.Books[0].Title)

	dl, err := c.DownloadBook(ctx, stubbackend.BookPrince)
	require.NoError(t, err)
	require.Equal(t, "b1.pdf", dl.Filename)
}

func TestStub_CatalogFilters(t *testing.T) {
	ctx := context.Background()
	srv := stubbackend.Start(t)
	token, err := srv.AddUser("reader", "pw", 0)
	require.NoError(t, err)
	c := client.New(srv.URL, client.WithTokenSource(client.StaticToken(token)))

	all, err := c.ListBooks(ctx, 0, 20, client.BookQuery{Category: stubbackend.AllCategories})
	require.NoError(t, err)
	require.Len(t, all, 3)

	manga, err := c.BooksByCategory(ctx, "มังงะ", 0, 20)
	require.NoError(t, err)
	require.Len(t, manga, 1)
	require.Equal(t, stubbackend.BookManga, manga[0].ID)

	cheapestFirst, err := c.ListBooks(ctx, 0, 20, client.BookQuery{SortBy: "price", SortOrder: 1})
	require.NoError(t, err)
	require.Equal(t, 50, cheapestFirst[0].Price)

	found, err := c.SearchBooks(ctx, "habits", 0, 20)
	require.NoError(t, err)
	require.Len(t, found, 1)

	cover, err := c.BookCover(ctx, stubbackend.BookManga)
	require.NoError(t, err)
	require.Nil(t, cover)

	_, err = c.Book(ctx, "missing")
	var apiErr *client.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusNotFound, apiErr.Status)
	require.Equal(t, "Book not found", apiErr.Message)
}

func TestStub_ReviewsAndReading(t *testing.T) {
	ctx := context.Background()
	srv := stubbackend.Start(t)
	token, err := srv.AddUser("reader", "pw", 500)
	require.NoError(t, err)
	c := client.New(srv.URL, client.WithTokenSource(client.StaticToken(token)))

	_, err = c.PurchaseBook(ctx, stubbackend.BookHabits)
	require.NoError(t, err)

	rev, err := c.CreateReview(ctx, stubbackend.BookHabits, 5, "Changed how I plan my day")
	require.NoError(t, err)
	require.True(t, rev.IsOwner)

	reviews, err := c.BookReviews(ctx, stubbackend.BookHabits, 0, 10)
	require.NoError(t, err)
	require.Equal(t, 1, reviews.TotalReviews)
	require.InDelta(t, 5.0, reviews.AverageRating, 0.001)

	_, err = c.UpdateReadingProgress(ctx, stubbackend.BookHabits, client.Progress{Page: 10, ProgressPercentage: 10})
	require.NoError(t, err)
	inProgress, err := c.ReadingInProgress(ctx, 0, 10)
	require.NoError(t, err)
	require.Equal(t, 1, inProgress.Total)

	_, err = c.MarkCompleted(ctx, stubbackend.BookHabits)
	require.NoError(t, err)
	done, err := c.ReadingCompleted(ctx, 0, 10)
	require.NoError(t, err)
	require.Equal(t, 1, done.Total)
	require.Equal(t, client.StatusCompleted, done.Books[0].Status)
}

func TestStub_TopUp(t *testing.T) {
	ctx := context.Background()
	srv := stubbackend.Start(t)
	token, err := srv.AddUser("reader", "pw", 0)
	require.NoError(t, err)
	c := client.New(srv.URL, client.WithTokenSource(client.StaticToken(token)))

	res, err := c.TrueMoneyPayment(ctx, "voucher-1", "0812345678")
	require.NoError(t, err)
	require.Equal(t, stubbackend.VoucherPoints, res.Points)

	hist, err := c.PaymentHistory(ctx, 10, 0)
	require.NoError(t, err)
	require.Equal(t, 1, hist.Total)
	require.Equal(t, "truemoney", hist.Payments[0].Method)
}

func TestStub_UnauthenticatedRoutes(t *testing.T) {
	srv := stubbackend.Start(t)
	resp, err := http.Get(srv.URL + "/users/me")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, 1, srv.Requests())
}
