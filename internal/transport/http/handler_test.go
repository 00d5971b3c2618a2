package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rosterboard/internal/aggregate"
	"rosterboard/internal/audit"
	"rosterboard/internal/directory"
	"rosterboard/internal/pipeline"
	"rosterboard/internal/pipeline/store"
	"rosterboard/internal/platform/config"
	"rosterboard/internal/reconcile"
	"rosterboard/internal/remote"
	dErrors "rosterboard/pkg/domainerrors"
	"rosterboard/pkg/secrets"
	"rosterboard/pkg/testutil"
)

// stubSource serves fixed upstream data without a network.
type stubSource struct {
	users   []remote.User
	records []remote.Record
	err     error
}

func (s *stubSource) FetchUsers(ctx context.Context) ([]remote.User, error) {
	return s.users, s.err
}

func (s *stubSource) FetchRecords(ctx context.Context) ([]remote.Record, error) {
	return s.records, s.err
}

func newTestRouter(t *testing.T, source pipeline.Source, server config.Server) (http.Handler, *audit.Memory) {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	events := audit.NewMemory()
	service := pipeline.NewService(source, directory.NewInMemory(time.Minute), store.NewMemory(), events, logger, nil)
	handler := New(service, events, logger, config.RosterConfig{
		NameColumn:   "Name",
		PhoneColumns: []string{"Phone Number", "Phone"},
	})
	return NewRouter(handler, logger, server), events
}

func defaultSource() *stubSource {
	return &stubSource{
		users: []remote.User{
			{ID: "u1", Name: "Asha Rao", Phone: "9000000001"},
			{ID: "u2", Name: "Ravi Kumar", Phone: "9000000002"},
		},
		records: []remote.Record{
			{OwnerID: "u1", MediaType: "text"},
			{OwnerID: "u1", MediaType: "image"},
			{OwnerID: "u2", MediaType: "text"},
			{OwnerID: "ghost", MediaType: "text"},
		},
	}
}

const rosterCSV = "Name,Phone Number\nAsha Rao,9000000001\nUnknown Person,\n"

func createRun(t *testing.T, router http.Handler) *createRunResponse {
	t.Helper()
	req := testutil.NewMultipartRequest(t, "/runs", "roster", "roster.csv", []byte(rosterCSV), nil)
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusCreated)
	return testutil.UnmarshalResponse[createRunResponse](t, rr)
}

func TestCreateRun(t *testing.T) {
	router, events := newTestRouter(t, defaultSource(), config.Server{})

	resp := createRun(t, router)
	run := resp.Run

	assert.Equal(t, pipeline.StatusCompleted, run.Status)
	require.NotNil(t, run.Reconciliation)
	assert.Equal(t, 2, run.Reconciliation.Stats.Total)
	assert.Equal(t, 1, run.Reconciliation.Stats.Matched)
	require.NotNil(t, run.Leaderboard)
	assert.Equal(t, 2, run.Leaderboard.Summary.OrphanRecords)
	assert.Nil(t, run.Augmented, "run JSON should not carry the augmented table")

	actions := make([]string, 0, 3)
	for _, e := range events.Events() {
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []string{audit.ActionRosterUpload, audit.ActionRunStarted, audit.ActionRunCompleted}, actions)
}

func TestCreateRunColumnOverrides(t *testing.T) {
	router, _ := newTestRouter(t, defaultSource(), config.Server{})

	csv := "full_name,whatsapp\nRavi Kumar,9000000002\n"
	req := testutil.NewMultipartRequest(t, "/runs", "roster", "r.csv", []byte(csv), map[string]string{
		"name_column":   "full_name",
		"phone_columns": "whatsapp",
	})
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusCreated)

	resp := testutil.UnmarshalResponse[createRunResponse](t, rr)
	assert.Equal(t, 1, resp.Run.Reconciliation.Stats.Matched)
	assert.Equal(t, "full_name", resp.Run.Config.NameColumn)
}

func TestCreateRunRejectsBadUploads(t *testing.T) {
	router, _ := newTestRouter(t, defaultSource(), config.Server{})

	t.Run("missing file field", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodPost, "/runs")
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
		testutil.AssertErrorCode(t, rr, string(dErrors.CodeBadRequest))
	})

	t.Run("empty csv", func(t *testing.T) {
		req := testutil.NewMultipartRequest(t, "/runs", "roster", "empty.csv", nil, nil)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("missing name column", func(t *testing.T) {
		req := testutil.NewMultipartRequest(t, "/runs", "roster", "r.csv", []byte("Phone\n9000000001\n"), nil)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
		testutil.AssertErrorCode(t, rr, string(dErrors.CodeBadRequest))
	})
}

func TestCreateRunUpstreamFailure(t *testing.T) {
	source := &stubSource{err: dErrors.New(dErrors.CodeUnavailable, "records api down")}
	router, _ := newTestRouter(t, source, config.Server{})

	req := testutil.NewMultipartRequest(t, "/runs", "roster", "r.csv", []byte(rosterCSV), nil)
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)
	testutil.AssertErrorCode(t, rr, string(dErrors.CodeUnavailable))
}

func TestGetRunAndList(t *testing.T) {
	router, _ := newTestRouter(t, defaultSource(), config.Server{})
	created := createRun(t, router)

	t.Run("get by id", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/runs/"+created.Run.ID))
		testutil.AssertStatus(t, rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[struct {
			Run runView `json:"run"`
		}](t, rr)
		assert.Equal(t, created.Run.ID, resp.Run.ID)
	})

	t.Run("unknown id is 404", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/runs/nope"))
		testutil.AssertStatus(t, rr, http.StatusNotFound)
		testutil.AssertErrorCode(t, rr, string(dErrors.CodeNotFound))
	})

	t.Run("list", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/runs"))
		testutil.AssertStatus(t, rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[struct {
			Runs []pipeline.Summary `json:"runs"`
		}](t, rr)
		require.Len(t, resp.Runs, 1)
		assert.Equal(t, created.Run.ID, resp.Runs[0].ID)
	})
}

func TestLeaderboardEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, defaultSource(), config.Server{})
	created := createRun(t, router)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/runs/"+created.Run.ID+"/leaderboard"))
	testutil.AssertStatus(t, rr, http.StatusOK)

	board := testutil.UnmarshalResponse[aggregate.Report](t, rr)
	require.NotEmpty(t, board.Entities)
	assert.Equal(t, "u1", board.Entities[0].ID)
	assert.Equal(t, 2, board.Entities[0].Total)
}

func TestAugmentedCSVDownload(t *testing.T) {
	router, _ := newTestRouter(t, defaultSource(), config.Server{})
	created := createRun(t, router)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/runs/"+created.Run.ID+"/roster.csv"))
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Equal(t, "text/csv", rr.Header().Get("Content-Type"))

	body := string(testutil.ReadBody(t, rr))
	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], reconcile.ColMatchStatus)
	assert.Contains(t, lines[1], "u1")
	assert.Contains(t, lines[2], string(reconcile.StatusNotFound))
}

func TestAPIKeyGuard(t *testing.T) {
	key, err := secrets.Generate()
	require.NoError(t, err)
	hash, err := secrets.Hash(key)
	require.NoError(t, err)

	router, _ := newTestRouter(t, defaultSource(), config.Server{APIKeyHash: hash})

	t.Run("rejects missing key", func(t *testing.T) {
		req := testutil.NewMultipartRequest(t, "/runs", "roster", "r.csv", []byte(rosterCSV), nil)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})

	t.Run("accepts valid key", func(t *testing.T) {
		req := testutil.NewMultipartRequest(t, "/runs", "roster", "r.csv", []byte(rosterCSV), nil)
		req.Header.Set("X-API-Key", key)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusCreated)
	})

	t.Run("reads stay open", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/runs"))
		testutil.AssertStatus(t, rr, http.StatusOK)
	})

	t.Run("health stays open", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/healthz"))
		testutil.AssertStatus(t, rr, http.StatusOK)
	})
}
