package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"mm-schedule-backend/pkg/config"
	"mm-schedule-backend/pkg/database"
	custommw "mm-schedule-backend/pkg/middleware"
	"mm-schedule-backend/pkg/models"
	"mm-schedule-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

// testEnv wires the handlers against the local file database in a temp dir,
// with a header-based auth stub in place of the JWT middleware.
type testEnv struct {
	router *chi.Mux
	db     database.DatabaseInterface
	cfg    *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := &config.Config{
		Environment:    "development",
		Port:           "3000",
		JWTSecret:      "test-secret",
		AppURL:         "http://localhost:3000",
		AllowedOrigins: []string{"*"},
	}
	db := database.NewLocalDatabase(t.TempDir())

	authHandler := NewAuthHandler(cfg, db)
	projectsHandler := NewProjectsHandler(cfg, db)
	sharingHandler := NewSharingHandler(cfg, db)
	shareHandler := NewShareHandler(cfg, db)

	router := chi.NewRouter()
	router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.RefreshToken)
		})
		r.Route("/share", func(r chi.Router) {
			r.Get("/{token}", shareHandler.GetSharedProject)
		})
		r.Group(func(r chi.Router) {
			r.Use(stubAuth)
			r.Get("/me", authHandler.Me)
			r.Route("/projects", func(r chi.Router) {
				r.Get("/", projectsHandler.ListProjects)
				r.Post("/", projectsHandler.CreateProject)
				r.Get("/{id}", projectsHandler.GetProject)
				r.Put("/{id}", projectsHandler.UpdateProject)
				r.Delete("/{id}", projectsHandler.DeleteProject)
				r.Put("/{id}/schedule", projectsHandler.SaveSchedule)
				r.Post("/{id}/share-link", sharingHandler.EnableShareLink)
				r.Delete("/{id}/share-link", sharingHandler.DisableShareLink)
				r.Post("/{id}/invites", sharingHandler.SendInvite)
				r.Get("/{id}/invites", sharingHandler.ListInvites)
				r.Get("/{id}/collaborators", sharingHandler.ListCollaborators)
			})
		})
	})

	return &testEnv{router: router, db: db, cfg: cfg}
}

// stubAuth injects the user named by the X-Test-UserID header, mirroring what
// the JWT middleware does in production.
func stubAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-Test-UserID")
		if userID == "" {
			utils.WriteUnauthorizedResponse(w, "Missing authorization header")
			return
		}
		user := &models.User{ID: userID, Email: userID + "@example.com"}
		ctx := context.WithValue(r.Context(), custommw.UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// do performs a request as the given user (empty userID means anonymous).
func (env *testEnv) do(t *testing.T, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-Test-UserID", userID)
	}

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

// decodeData unmarshals the envelope's data field into out.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.True(t, envelope.Success, "expected success envelope, body: %s", rec.Body.String())
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

// createProject seeds a project owned by ownerID and returns it.
func (env *testEnv) createProject(t *testing.T, ownerID, title string) *models.Project {
	t.Helper()
	project := &models.Project{OwnerID: ownerID, Title: title}
	require.NoError(t, env.db.CreateProject(project))
	return project
}
