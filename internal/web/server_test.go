package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"revue/internal/auth"
	"revue/internal/catalog"
	"revue/internal/config"
	"revue/internal/country"
	"revue/internal/eventlog"
	"revue/internal/review"
	"revue/internal/store"
	"revue/internal/user"
)

type testEnv struct {
	srv      *httptest.Server
	products *catalog.Store
	reviews  *review.Store
	users    *user.Store
	events   *eventlog.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := config.Default()
	cfg.BcryptCost = bcrypt.MinCost
	log := zap.NewNop()

	env := &testEnv{
		products: catalog.NewStore(db, log),
		reviews:  review.NewStore(db, log),
		users:    user.NewStore(db, cfg.BcryptCost, cfg.TestAccountSuffix),
		events:   eventlog.NewStore(db),
	}
	server := NewServer(
		cfg,
		log,
		env.products,
		env.reviews,
		env.users,
		env.events,
		auth.NewSessions(db, time.Hour),
		auth.NewLoginLimiter(6000, 100),
	)
	env.srv = httptest.NewServer(server.Handler())
	t.Cleanup(env.srv.Close)
	return env
}

// register creates an account through the API, upgrades its role directly in
// the store, and returns the session cookie.
func (e *testEnv) register(t *testing.T, email string, userType user.Type) *http.Cookie {
	t.Helper()
	resp, err := http.PostForm(e.srv.URL+"/register", url.Values{
		"email":    {email},
		"password": {"password"},
	})
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == auth.CookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)

	if userType != user.TypeUser {
		u, err := e.users.GetByEmail(context.Background(), email)
		require.NoError(t, err)
		require.NoError(t, e.users.ChangeType(context.Background(), u.UserID, userType))
	}
	return cookie
}

func (e *testEnv) postForm(t *testing.T, path string, form url.Values, cookie *http.Cookie) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, e.srv.URL+path, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func (e *testEnv) get(t *testing.T, path string, cookie *http.Cookie) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, e.srv.URL+path, nil)
	require.NoError(t, err)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func (e *testEnv) seedProduct(t *testing.T, name string, features []string, countries ...country.Code) int64 {
	t.Helper()
	id, err := e.products.Add(context.Background(), catalog.Product{
		Name:     name,
		Category: catalog.CategoryDetergent,
		Status:   catalog.StatusAccepted,
		Content: catalog.Content{
			Countries:    countries,
			FeaturesList: features,
		},
	})
	require.NoError(t, err)
	return id
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	resp, err := http.Get(env.srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLoginFlow(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "a@example.com", user.TypeUser)

	resp, err := http.PostForm(env.srv.URL+"/login", url.Values{
		"email":    {"a@example.com"},
		"password": {"password"},
	})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.PostForm(env.srv.URL+"/login", url.Values{
		"email":    {"a@example.com"},
		"password": {"wrong"},
	})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestImportEndpointsRequireLogin(t *testing.T) {
	env := newTestEnv(t)
	resp := env.postForm(t, "/admin/reviews", url.Values{"intent": {"importReviews"}}, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestImportEndpointRejectsUnknownIntent(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.register(t, "a@example.com", user.TypeUser)
	resp := env.postForm(t, "/admin/reviews", url.Values{"intent": {"mystery"}}, cookie)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCheckAvailabilityAndImport(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.register(t, "importer@example.com", user.TypeUser)
	productID := env.seedProduct(t, "Product 1", []string{"Lorem", "Ipsum"}, country.PL, country.DE)

	pairs, err := json.Marshal([]catalog.ExistenceQuery{
		{Name: "Product 1", Countries: []country.Code{country.PL}},
		{Name: "Missing", Countries: []country.Code{country.UK}},
	})
	require.NoError(t, err)

	resp := env.postForm(t, "/admin/reviews", url.Values{
		"intent":   {"checkProductAvailability"},
		"products": {string(pairs)},
	}, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var checkBody struct {
		ResponseTo string            `json:"responseTo"`
		Products   []catalog.Product `json:"products"`
	}
	decodeBody(t, resp, &checkBody)
	assert.Equal(t, "checkProductAvailability", checkBody.ResponseTo)
	require.Len(t, checkBody.Products, 1)
	assert.Equal(t, productID, checkBody.Products[0].ProductID)

	payload := []importReviewRequest{{}, {}}
	payload[0].Review.ProductID = productID
	payload[0].Review.Status = review.StatusAccepted
	payload[0].ReviewContent = reviewContentPayload{
		Grade:       8,
		Category:    review.CategoryPositive,
		Language:    "PL",
		RatingsList: []float64{8, 8},
	}
	payload[1].Review.ProductID = productID
	payload[1].Review.Status = review.StatusAccepted
	payload[1].ReviewContent = reviewContentPayload{
		Grade:       2,
		Category:    review.CategoryNegative,
		Language:    "DE",
		RatingsList: []float64{2, 2},
	}
	reviewsJSON, err := json.Marshal(payload)
	require.NoError(t, err)

	resp = env.postForm(t, "/admin/reviews", url.Values{
		"intent":  {"importReviews"},
		"reviews": {string(reviewsJSON)},
	}, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var importBody struct {
		ResponseTo string  `json:"responseTo"`
		ReviewIDs  []int64 `json:"reviewIds"`
	}
	decodeBody(t, resp, &importBody)
	assert.Equal(t, "importReviews", importBody.ResponseTo)
	require.Len(t, importBody.ReviewIDs, 2)

	// Imported reviews are live immediately, owned by the session user.
	stored, err := env.reviews.AcceptedByProduct(context.Background(), productID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	owner, err := env.users.GetByEmail(context.Background(), "importer@example.com")
	require.NoError(t, err)
	for _, r := range stored {
		assert.Equal(t, owner.UserID, r.UserID)
		assert.Equal(t, review.SourceOpinionCollector, r.Content.Source)
	}
}

func TestOfferAndModerateProduct(t *testing.T) {
	env := newTestEnv(t)
	userCookie := env.register(t, "user@example.com", user.TypeUser)
	adminCookie := env.register(t, "admin@example.com", user.TypeAdmin)

	resp := env.postForm(t, "/products", url.Values{
		"name":      {"Offered Washer"},
		"category":  {"DETERGENT"},
		"countries": {"PL,DE"},
		"features":  {"Lorem, Ipsum"},
	}, userCookie)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		ProductID int64 `json:"productId"`
	}
	decodeBody(t, resp, &created)
	require.NotZero(t, created.ProductID)

	// Not listed publicly while NEW.
	listResp := env.get(t, "/products?search=offered", nil)
	var listing struct {
		Products []catalog.Product `json:"products"`
		Total    int               `json:"total"`
	}
	decodeBody(t, listResp, &listing)
	assert.Zero(t, listing.Total)

	queueResp := env.get(t, "/admin/new-products", adminCookie)
	var queue struct {
		Products []catalog.Product `json:"products"`
	}
	decodeBody(t, queueResp, &queue)
	require.Len(t, queue.Products, 1)

	resp = env.postForm(t, "/admin/products/"+itoa(created.ProductID), url.Values{
		"intent": {"accept"},
	}, adminCookie)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	listResp = env.get(t, "/products?search=offered", nil)
	decodeBody(t, listResp, &listing)
	require.Equal(t, 1, listing.Total)
	assert.Equal(t, catalog.StatusAccepted, listing.Products[0].Status)
}

func TestProductLinking(t *testing.T) {
	env := newTestEnv(t)
	adminCookie := env.register(t, "admin@example.com", user.TypeAdmin)
	a := env.seedProduct(t, "Washer", []string{"Lorem"}, country.PL)
	b := env.seedProduct(t, "Washer", []string{"Lorem"}, country.DE)

	ids, err := json.Marshal([]int64{a, b})
	require.NoError(t, err)
	resp := env.postForm(t, "/admin/products/links", url.Values{
		"intent":   {"link"},
		"products": {string(ids)},
	}, adminCookie)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	listResp := env.get(t, "/admin/products", adminCookie)
	var listing struct {
		Products []catalog.Stripped `json:"products"`
	}
	decodeBody(t, listResp, &listing)
	require.Len(t, listing.Products, 2)
	assert.Equal(t, []int64{b}, listing.Products[0].LinkedProducts)
	assert.Equal(t, []int64{a}, listing.Products[1].LinkedProducts)

	resp = env.postForm(t, "/admin/products/links", url.Values{
		"intent":   {"ulink"},
		"products": {string(ids)},
	}, adminCookie)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	listResp = env.get(t, "/admin/products", adminCookie)
	decodeBody(t, listResp, &listing)
	assert.Empty(t, listing.Products[0].LinkedProducts)
}

func TestModeratorGating(t *testing.T) {
	env := newTestEnv(t)
	userCookie := env.register(t, "user@example.com", user.TypeUser)
	adminCookie := env.register(t, "admin@example.com", user.TypeAdmin)
	modCookie := env.register(t, "mod@example.com", user.TypeModerator)

	resp := env.get(t, "/moderator/reviews", userCookie)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// The moderation queue belongs to moderators alone.
	resp = env.get(t, "/moderator/reviews", adminCookie)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.get(t, "/moderator/reviews", modCookie)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReviewModerationFlow(t *testing.T) {
	env := newTestEnv(t)
	userCookie := env.register(t, "user@example.com", user.TypeUser)
	modCookie := env.register(t, "mod@example.com", user.TypeModerator)
	productID := env.seedProduct(t, "Washer", []string{"Lorem", "Ipsum"}, country.PL)

	resp := env.postForm(t, "/products/"+itoa(productID)+"/reviews", url.Values{
		"grade":         {"8"},
		"language":      {"PL"},
		"description":   {"works"},
		"featureGrades": {"8,7"},
	}, userCookie)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		ReviewID int64 `json:"reviewId"`
	}
	decodeBody(t, resp, &created)

	// Invisible on the product page until accepted.
	detailResp := env.get(t, "/products/"+itoa(productID), nil)
	var detail struct {
		Reviews []review.Review `json:"reviews"`
	}
	decodeBody(t, detailResp, &detail)
	assert.Empty(t, detail.Reviews)

	resp = env.postForm(t, "/moderator/reviews/"+itoa(created.ReviewID),
		url.Values{"intent": {"accept"}}, modCookie)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	detailResp = env.get(t, "/products/"+itoa(productID), nil)
	decodeBody(t, detailResp, &detail)
	require.Len(t, detail.Reviews, 1)
	assert.Equal(t, review.StatusAccepted, detail.Reviews[0].Status)
}

func TestVoteFlow(t *testing.T) {
	env := newTestEnv(t)
	author := env.register(t, "author@example.com", user.TypeUser)
	voter := env.register(t, "voter@example.com", user.TypeUser)
	productID := env.seedProduct(t, "Washer", []string{"Lorem"}, country.PL)

	resp := env.postForm(t, "/products/"+itoa(productID)+"/reviews", url.Values{
		"grade": {"5"},
	}, author)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		ReviewID int64 `json:"reviewId"`
	}
	decodeBody(t, resp, &created)

	votePath := "/reviews/" + itoa(created.ReviewID) + "/vote"
	resp = env.postForm(t, votePath, url.Values{"intent": {"helpful"}}, voter)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var counts struct {
		Helpful   int `json:"helpful"`
		Unhelpful int `json:"unhelpful"`
	}
	decodeBody(t, resp, &counts)
	assert.Equal(t, 1, counts.Helpful)

	resp = env.postForm(t, votePath, url.Values{"intent": {"clear-helpful"}}, voter)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &counts)
	assert.Zero(t, counts.Helpful)

	resp = env.postForm(t, votePath, url.Values{"intent": {"sideways"}}, voter)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUserAdministration(t *testing.T) {
	env := newTestEnv(t)
	adminCookie := env.register(t, "admin@example.com", user.TypeAdmin)
	env.register(t, "target@example.com", user.TypeUser)

	target, err := env.users.GetByEmail(context.Background(), "target@example.com")
	require.NoError(t, err)

	resp := env.postForm(t, "/admin/users/"+itoa(target.UserID), url.Values{
		"intent":   {"change-type"},
		"userType": {"MODERATOR"},
	}, adminCookie)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got, err := env.users.GetByID(context.Background(), target.UserID)
	require.NoError(t, err)
	assert.Equal(t, user.TypeModerator, got.UserType)

	resp = env.postForm(t, "/admin/users/"+itoa(target.UserID), url.Values{
		"intent": {"delete"},
	}, adminCookie)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, err = env.users.GetByID(context.Background(), target.UserID)
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestAuditTrailWritten(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.register(t, "user@example.com", user.TypeUser)

	resp := env.postForm(t, "/products", url.Values{
		"name":      {"Offered"},
		"category":  {"DETERGENT"},
		"countries": {"PL"},
	}, cookie)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	entries, err := env.events.Find(context.Background(), eventlog.Filter{
		Types: []eventlog.Type{eventlog.CreateProduct},
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Description, "user@example.com(user)")
	assert.Contains(t, entries[0].Description, "Offered")
}

func TestLogsEndpointGated(t *testing.T) {
	env := newTestEnv(t)
	userCookie := env.register(t, "user@example.com", user.TypeUser)
	adminCookie := env.register(t, "admin@example.com", user.TypeAdmin)

	resp := env.get(t, "/admin/logs", userCookie)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.get(t, "/admin/logs?type=cu", adminCookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Logs []eventlog.Entry `json:"logs"`
	}
	decodeBody(t, resp, &body)
	// Both registrations were logged as user creations.
	assert.Len(t, body.Logs, 2)
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
