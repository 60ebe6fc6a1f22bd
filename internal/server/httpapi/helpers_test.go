package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/penter405/brainsync/internal/cryptox"
	"github.com/penter405/brainsync/internal/logging"
	"github.com/penter405/brainsync/internal/server/auth"
	"github.com/penter405/brainsync/internal/server/drive"
	"github.com/penter405/brainsync/internal/server/models"
	"github.com/penter405/brainsync/internal/server/reconciler"
	"github.com/penter405/brainsync/internal/server/repositories/repomanager"
	"github.com/penter405/brainsync/internal/server/services"
	"github.com/stretchr/testify/require"
)

const (
	testOrigin   = "https://brain.example"
	testFrontend = "https://brain.example/app"
)

type testServer struct {
	srv      *HTTPServer
	handler  http.Handler
	rm       repomanager.RepositoryManager
	vault    *cryptox.Vault
	sessions *auth.SessionCodec
	provider *stubProvider
	drive    *stubDrive
	recon    *reconciler.Reconciler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	vault, err := cryptox.NewVault([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	sessions, err := auth.NewSessionCodec([]byte("session-secret"), 0)
	require.NoError(t, err)
	states, err := auth.NewStateSigner([]byte("session-secret"), 0)
	require.NoError(t, err)

	logger := logging.NewNopLogger()
	rm := repomanager.NewInMemoryRepositoryManager()
	recorder := services.NewAuditRecorder(nil, rm, logger)
	recon := reconciler.New(vault, rm.Identities(nil), logger, time.Second)

	ts := &testServer{
		rm:       rm,
		vault:    vault,
		sessions: sessions,
		provider: &stubProvider{},
		drive:    &stubDrive{files: map[string]json.RawMessage{}},
		recon:    recon,
	}
	open := func(context.Context, drive.Credentials, drive.RotationFunc) services.DriveAPI { return ts.drive }

	as := services.NewAuthService(nil, rm, ts.provider, vault, sessions, states, recorder, logger)
	ss := services.NewSyncService(nil, rm, vault, open, recon, recorder, logger)

	ts.srv = NewHTTPServer(Options{AllowedOrigin: testOrigin, FrontendURL: testFrontend}, logger, as, ss, sessions, 10*time.Minute)
	ts.handler = ts.srv.Handler()
	t.Cleanup(recon.Wait)
	return ts
}

// seed stores an identity with both tokens and returns a session for it.
func (ts *testServer) seed(t *testing.T, id, fileID string) string {
	t.Helper()
	access, err := ts.vault.Seal("access-" + id)
	require.NoError(t, err)
	refresh, err := ts.vault.Seal("refresh-" + id)
	require.NoError(t, err)

	u := models.IdentityUpdate{
		Name:         models.Ptr("Alice"),
		Email:        models.Ptr("a@example.com"),
		AccessToken:  access,
		RefreshToken: refresh,
	}
	if fileID != "" {
		u.DriveFileID = models.Ptr(fileID)
	}
	_, err = ts.rm.Identities(nil).Upsert(context.Background(), id, u)
	require.NoError(t, err)

	token, err := ts.sessions.Issue(id)
	require.NoError(t, err)
	return token
}

func (ts *testServer) do(t *testing.T, method, path, session, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if session != "" {
		req.Header.Set("Authorization", "Bearer "+session)
	}
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func findCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

type stubProvider struct {
	creds *drive.Credentials
	info  *drive.UserInfo
	err   error
}

func (p *stubProvider) AuthCodeURL(state string) string {
	return "https://accounts.example/auth?state=" + state
}

func (p *stubProvider) Exchange(context.Context, string) (*drive.Credentials, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.creds, nil
}

func (p *stubProvider) UserInfo(context.Context, string) (*drive.UserInfo, error) {
	return p.info, nil
}

type stubDrive struct {
	files   map[string]json.RawMessage
	updates map[string][]byte
	listing []drive.File
	err     error
}

func (d *stubDrive) GetFile(_ context.Context, fileID string) (json.RawMessage, error) {
	if d.err != nil {
		return nil, d.err
	}
	data, ok := d.files[fileID]
	if !ok {
		return nil, drive.ErrNotFound
	}
	return data, nil
}

func (d *stubDrive) UpdateFile(_ context.Context, fileID string, content []byte) error {
	if d.err != nil {
		return d.err
	}
	if d.updates == nil {
		d.updates = map[string][]byte{}
	}
	d.updates[fileID] = content
	return nil
}

func (d *stubDrive) CreateFile(_ context.Context, name, _ string, content []byte) (*drive.File, error) {
	if d.err != nil {
		return nil, d.err
	}
	if err := d.UpdateFile(context.Background(), "created_file_0001", content); err != nil {
		return nil, err
	}
	return &drive.File{ID: "created_file_0001", Name: name}, nil
}

func (d *stubDrive) FindOrCreateFolder(context.Context, string) (string, error) {
	return "folder_id_0001", d.err
}

func (d *stubDrive) ListFiles(context.Context) ([]drive.File, error) {
	return d.listing, d.err
}

func (d *stubDrive) ListFolders(context.Context) ([]drive.File, error) {
	return d.listing, d.err
}
