package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/penter405/brainsync/internal/cryptox"
	"github.com/penter405/brainsync/internal/logging"
	"github.com/penter405/brainsync/internal/server/auth"
	"github.com/penter405/brainsync/internal/server/drive"
	"github.com/penter405/brainsync/internal/server/models"
	"github.com/penter405/brainsync/internal/server/reconciler"
	"github.com/penter405/brainsync/internal/server/repositories/audit"
	"github.com/penter405/brainsync/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	rm       repomanager.RepositoryManager
	vault    *cryptox.Vault
	sessions *auth.SessionCodec
	states   *auth.StateSigner
	recorder *AuditRecorder
	recon    *reconciler.Reconciler
	provider *fakeProvider
	drive    *fakeDrive
	opened   []drive.Credentials
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	vault, err := cryptox.NewVault([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	sessions, err := auth.NewSessionCodec([]byte("session-secret"), 0)
	require.NoError(t, err)
	states, err := auth.NewStateSigner([]byte("session-secret"), 0)
	require.NoError(t, err)

	rm := repomanager.NewInMemoryRepositoryManager()
	logger := logging.NewNopLogger()

	f := &fixture{
		rm:       rm,
		vault:    vault,
		sessions: sessions,
		states:   states,
		recorder: NewAuditRecorder(nil, rm, logger),
		recon:    reconciler.New(vault, rm.Identities(nil), logger, time.Second),
		provider: &fakeProvider{},
		drive:    &fakeDrive{},
	}
	return f
}

func (f *fixture) authService() *AuthService {
	return NewAuthService(nil, f.rm, f.provider, f.vault, f.sessions, f.states, f.recorder, logging.NewNopLogger())
}

func (f *fixture) syncService() *SyncService {
	open := func(_ context.Context, creds drive.Credentials, onRotate drive.RotationFunc) DriveAPI {
		f.opened = append(f.opened, creds)
		f.drive.onRotate = onRotate
		return f.drive
	}
	return NewSyncService(nil, f.rm, f.vault, open, f.recon, f.recorder, logging.NewNopLogger())
}

func (f *fixture) auditEntries() []models.AuditEntry {
	return f.rm.Audit(nil).(*audit.MemoryRepository).Entries()
}

func (f *fixture) seed(t *testing.T, id, access, refresh, fileID string) {
	t.Helper()
	u := models.IdentityUpdate{Name: models.Ptr("Alice"), Email: models.Ptr("a@example.com")}
	if access != "" {
		env, err := f.vault.Seal(access)
		require.NoError(t, err)
		u.AccessToken = env
	}
	if refresh != "" {
		env, err := f.vault.Seal(refresh)
		require.NoError(t, err)
		u.RefreshToken = env
	}
	if fileID != "" {
		u.DriveFileID = models.Ptr(fileID)
	}
	_, err := f.rm.Identities(nil).Upsert(context.Background(), id, u)
	require.NoError(t, err)
}

func (f *fixture) identity(t *testing.T, id string) *models.Identity {
	t.Helper()
	rec, err := f.rm.Identities(nil).FindByIdentityID(context.Background(), id)
	require.NoError(t, err)
	return rec
}

func (f *fixture) open(t *testing.T, env *cryptox.Envelope) string {
	t.Helper()
	s, err := f.vault.Open(env)
	require.NoError(t, err)
	return s
}

type fakeProvider struct {
	creds       *drive.Credentials
	exchangeErr error
	info        *drive.UserInfo
	infoErr     error
}

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://accounts.example/auth?state=" + state
}

func (p *fakeProvider) Exchange(context.Context, string) (*drive.Credentials, error) {
	if p.exchangeErr != nil {
		return nil, p.exchangeErr
	}
	return p.creds, nil
}

func (p *fakeProvider) UserInfo(context.Context, string) (*drive.UserInfo, error) {
	if p.infoErr != nil {
		return nil, p.infoErr
	}
	return p.info, nil
}

// fakeDrive records calls. If rotate is set, the first call emits it
// through the reconciler callback, like an oauth2 refresh mid-request.
type fakeDrive struct {
	mu       sync.Mutex
	onRotate drive.RotationFunc
	rotate   *drive.Rotation

	files   map[string]json.RawMessage
	updates map[string][]byte
	folders map[string]string
	created []string
	parents []string
	listing []drive.File
	err     error
}

func (d *fakeDrive) call() error {
	d.mu.Lock()
	rot := d.rotate
	d.rotate = nil
	d.mu.Unlock()
	if rot != nil && d.onRotate != nil {
		d.onRotate(*rot)
	}
	return d.err
}

func (d *fakeDrive) GetFile(_ context.Context, fileID string) (json.RawMessage, error) {
	if err := d.call(); err != nil {
		return nil, err
	}
	data, ok := d.files[fileID]
	if !ok {
		return nil, drive.ErrNotFound
	}
	return data, nil
}

func (d *fakeDrive) UpdateFile(_ context.Context, fileID string, content []byte) error {
	if err := d.call(); err != nil {
		return err
	}
	if d.updates == nil {
		d.updates = map[string][]byte{}
	}
	d.updates[fileID] = content
	return nil
}

func (d *fakeDrive) CreateFile(_ context.Context, name, parentID string, content []byte) (*drive.File, error) {
	if err := d.call(); err != nil {
		return nil, err
	}
	d.created = append(d.created, name)
	d.parents = append(d.parents, parentID)
	id := "created_file_0001"
	if d.updates == nil {
		d.updates = map[string][]byte{}
	}
	d.updates[id] = content
	return &drive.File{ID: id, Name: name}, nil
}

func (d *fakeDrive) FindOrCreateFolder(_ context.Context, name string) (string, error) {
	if err := d.call(); err != nil {
		return "", err
	}
	if d.folders == nil {
		d.folders = map[string]string{}
	}
	if id, ok := d.folders[name]; ok {
		return id, nil
	}
	d.folders[name] = "folder-" + name
	return d.folders[name], nil
}

func (d *fakeDrive) ListFiles(context.Context) ([]drive.File, error) {
	if err := d.call(); err != nil {
		return nil, err
	}
	return d.listing, nil
}

func (d *fakeDrive) ListFolders(context.Context) ([]drive.File, error) {
	if err := d.call(); err != nil {
		return nil, err
	}
	return d.listing, nil
}

type failingAudit struct{}

func (failingAudit) Append(context.Context, *models.AuditEntry) error {
	return errors.New("audit store down")
}
