package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/penter405/brainsync/internal/common"
	"github.com/penter405/brainsync/internal/cryptox"
	"github.com/penter405/brainsync/internal/logging"
	"github.com/penter405/brainsync/internal/server/drive"
	"github.com/penter405/brainsync/internal/server/models"
	"github.com/penter405/brainsync/internal/server/reconciler"
	"github.com/penter405/brainsync/internal/server/repositories/repomanager"
)

const (
	MaxFileNameLength = 100
	MaxSyncPayload    = 5 << 20
)

var fileIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{10,80}$`)

// ErrPayloadTooLarge is returned by Sync for documents over MaxSyncPayload.
var ErrPayloadTooLarge = fmt.Errorf("%w: payload too large", common.ErrorValidation)

// DriveAPI is the file store used by SyncService.
type DriveAPI interface {
	GetFile(ctx context.Context, fileID string) (json.RawMessage, error)
	UpdateFile(ctx context.Context, fileID string, content []byte) error
	CreateFile(ctx context.Context, name, parentID string, content []byte) (*drive.File, error)
	FindOrCreateFolder(ctx context.Context, name string) (string, error)
	ListFiles(ctx context.Context) ([]drive.File, error)
	ListFolders(ctx context.Context) ([]drive.File, error)
}

// DriveOpener builds a DriveAPI for one identity and one request.
type DriveOpener func(ctx context.Context, creds drive.Credentials, onRotate drive.RotationFunc) DriveAPI

func NewDriveOpener(p *drive.Provider) DriveOpener {
	return func(ctx context.Context, creds drive.Credentials, onRotate drive.RotationFunc) DriveAPI {
		return p.Client(ctx, creds, onRotate)
	}
}

// Document is the file content written to the sync target.
type Document struct {
	SyncTimestamp string          `json:"syncTimestamp"`
	TriggerAction string          `json:"triggerAction"`
	TreeData      json.RawMessage `json:"treeData"`
}

// SyncRequest is the input to Sync. TreeData must be an object with a
// string "name" and an array "children".
type SyncRequest struct {
	TreeData      json.RawMessage
	TriggerAction string
	SyncTimestamp string
}

type FolderListing struct {
	Folders       []drive.File
	CurrentFolder string
}

type SyncService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	vault       *cryptox.Vault
	open        DriveOpener
	reconciler  *reconciler.Reconciler
	audit       *AuditRecorder
	logger      logging.Logger
	now         func() time.Time
}

func NewSyncService(db *sql.DB, m repomanager.RepositoryManager, vault *cryptox.Vault, open DriveOpener,
	r *reconciler.Reconciler, recorder *AuditRecorder, logger logging.Logger) *SyncService {
	return &SyncService{
		db:          db,
		repomanager: m,
		vault:       vault,
		open:        open,
		reconciler:  r,
		audit:       recorder,
		logger:      logger.With("module", "sync"),
		now:         time.Now,
	}
}

// SetTarget stores fileID as the identity's sync target.
func (s *SyncService) SetTarget(ctx context.Context, identityID, fileID, ip string) error {
	if !fileIDPattern.MatchString(fileID) {
		return fmt.Errorf("%w: invalid fileId", common.ErrorValidation)
	}

	err := s.repomanager.Identities(s.db).Update(ctx, identityID, models.IdentityUpdate{DriveFileID: models.Ptr(fileID)})
	s.audit.Record(ctx, AuditRecord{IdentityID: identityID, Action: models.ActionSetTarget, FileID: fileID, IP: ip, Err: err})
	return err
}

// CreateFile creates a new JSON document, optionally inside a named folder,
// and makes it the sync target.
func (s *SyncService) CreateFile(ctx context.Context, identityID, fileName, folderName, ip string) (*drive.File, error) {
	if fileName == "" || len(fileName) > MaxFileNameLength {
		return nil, fmt.Errorf("%w: fileName must be 1 to %d characters", common.ErrorValidation, MaxFileNameLength)
	}
	if !strings.HasSuffix(strings.ToLower(fileName), ".json") {
		return nil, fmt.Errorf("%w: fileName must end with .json", common.ErrorValidation)
	}
	folderName = strings.TrimSpace(folderName)

	var file *drive.File
	err := s.withDrive(ctx, identityID, func(rec *models.Identity, api DriveAPI) error {
		parentID := ""
		if folderName != "" {
			id, err := api.FindOrCreateFolder(ctx, folderName)
			if err != nil {
				return err
			}
			parentID = id
		}

		content, err := s.encode(Document{TriggerAction: "create", TreeData: json.RawMessage("null")}, "")
		if err != nil {
			return err
		}
		if file, err = api.CreateFile(ctx, fileName, parentID, content); err != nil {
			return err
		}

		u := models.IdentityUpdate{DriveFileID: models.Ptr(file.ID), DriveFileName: models.Ptr(fileName)}
		if folderName != "" {
			u.DriveFolderName = models.Ptr(folderName)
		}
		return s.repomanager.Identities(s.db).Update(ctx, identityID, u)
	})

	fileID := ""
	if file != nil {
		fileID = file.ID
	}
	s.audit.Record(ctx, AuditRecord{IdentityID: identityID, Action: models.ActionCreate, FileID: fileID, IP: ip, Err: err})
	if err != nil {
		return nil, err
	}
	return file, nil
}

// Sync writes the document to the identity's sync target.
func (s *SyncService) Sync(ctx context.Context, identityID string, req SyncRequest, ip string) error {
	if err := validateTree(req.TreeData); err != nil {
		return err
	}

	content, err := s.encode(Document{
		SyncTimestamp: req.SyncTimestamp,
		TriggerAction: req.TriggerAction,
		TreeData:      req.TreeData,
	}, "unknown")
	if err != nil {
		return err
	}
	if len(content) > MaxSyncPayload {
		return ErrPayloadTooLarge
	}

	var fileID string
	err = s.withTarget(ctx, identityID, func(rec *models.Identity, api DriveAPI) error {
		fileID = rec.DriveFileID
		return api.UpdateFile(ctx, fileID, content)
	})
	s.recordTargetOp(ctx, identityID, models.ActionSync, fileID, ip, err)
	return err
}

// Load reads the identity's sync target.
func (s *SyncService) Load(ctx context.Context, identityID, ip string) (json.RawMessage, error) {
	var (
		fileID string
		data   json.RawMessage
	)
	err := s.withTarget(ctx, identityID, func(rec *models.Identity, api DriveAPI) error {
		fileID = rec.DriveFileID
		var err error
		data, err = api.GetFile(ctx, fileID)
		return err
	})
	s.recordTargetOp(ctx, identityID, models.ActionLoad, fileID, ip, err)
	return data, err
}

// LoadByID reads an arbitrary file the app has access to without changing
// the sync target.
func (s *SyncService) LoadByID(ctx context.Context, identityID, fileID, ip string) (json.RawMessage, error) {
	if !fileIDPattern.MatchString(fileID) {
		return nil, fmt.Errorf("%w: invalid fileId", common.ErrorValidation)
	}

	var data json.RawMessage
	err := s.withDrive(ctx, identityID, func(_ *models.Identity, api DriveAPI) error {
		var err error
		data, err = api.GetFile(ctx, fileID)
		return err
	})
	s.audit.Record(ctx, AuditRecord{IdentityID: identityID, Action: models.ActionLoad, FileID: fileID, IP: ip, Err: err})
	return data, err
}

func (s *SyncService) ListFiles(ctx context.Context, identityID string) ([]drive.File, error) {
	var files []drive.File
	err := s.withDrive(ctx, identityID, func(_ *models.Identity, api DriveAPI) error {
		var err error
		files, err = api.ListFiles(ctx)
		return err
	})
	return files, err
}

func (s *SyncService) ListFolders(ctx context.Context, identityID string) (*FolderListing, error) {
	var out FolderListing
	err := s.withDrive(ctx, identityID, func(rec *models.Identity, api DriveAPI) error {
		var err error
		out.CurrentFolder = rec.DriveFolderName
		out.Folders, err = api.ListFolders(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// withDrive loads the identity, opens its credentials and hands fn a Drive
// client whose rotations go to a fresh reconciler scope.
func (s *SyncService) withDrive(ctx context.Context, identityID string, fn func(*models.Identity, DriveAPI) error) error {
	rec, err := s.repomanager.Identities(s.db).FindByIdentityID(ctx, identityID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrMissingCredentials
		}
		return err
	}
	return s.run(ctx, rec, fn)
}

// withTarget is withDrive for operations that need a sync target.
func (s *SyncService) withTarget(ctx context.Context, identityID string, fn func(*models.Identity, DriveAPI) error) error {
	rec, err := s.repomanager.Identities(s.db).FindByIdentityID(ctx, identityID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrNoSyncTarget
		}
		return err
	}
	if rec.DriveFileID == "" {
		return common.ErrNoSyncTarget
	}
	return s.run(ctx, rec, fn)
}

func (s *SyncService) run(ctx context.Context, rec *models.Identity, fn func(*models.Identity, DriveAPI) error) error {
	if !rec.HasCredentials() {
		return common.ErrMissingCredentials
	}

	access, err := s.vault.Open(rec.AccessToken)
	if err != nil {
		s.logger.Error(ctx, "opening access token failed", "identity_id", rec.IdentityID, "error", err)
		return err
	}
	refresh, err := s.vault.Open(rec.RefreshToken)
	if err != nil {
		s.logger.Error(ctx, "opening refresh token failed", "identity_id", rec.IdentityID, "error", err)
		return err
	}

	scope := s.reconciler.Scope(ctx, rec.IdentityID)
	api := s.open(ctx, drive.Credentials{
		AccessToken:  access,
		RefreshToken: refresh,
		Expiry:       rec.AccessTokenExpiry,
	}, scope.Notify)

	if err := fn(rec, api); err != nil {
		s.logger.Warn(ctx, "drive operation failed", "identity_id", rec.IdentityID, "error", err)
		return err
	}
	return nil
}

// recordTargetOp audits sync and load. A missing target is a client mistake
// and is not recorded.
func (s *SyncService) recordTargetOp(ctx context.Context, identityID string, action models.AuditAction, fileID, ip string, err error) {
	if errors.Is(err, common.ErrNoSyncTarget) || errors.Is(err, common.ErrMissingCredentials) {
		return
	}
	s.audit.Record(ctx, AuditRecord{IdentityID: identityID, Action: action, FileID: fileID, IP: ip, Err: err})
}

func (s *SyncService) encode(doc Document, defaultTrigger string) ([]byte, error) {
	if doc.SyncTimestamp == "" {
		doc.SyncTimestamp = s.now().UTC().Format("2006-01-02T15:04:05.000Z")
	}
	if doc.TriggerAction == "" {
		doc.TriggerAction = defaultTrigger
	}
	return json.MarshalIndent(doc, "", "  ")
}

func validateTree(raw json.RawMessage) error {
	var tree struct {
		Name     *string          `json:"name"`
		Children *json.RawMessage `json:"children"`
	}
	if len(raw) == 0 || string(raw) == "null" {
		return fmt.Errorf("%w: missing treeData", common.ErrorValidation)
	}
	if err := json.Unmarshal(raw, &tree); err != nil || tree.Name == nil || tree.Children == nil ||
		!strings.HasPrefix(strings.TrimSpace(string(*tree.Children)), "[") {
		return fmt.Errorf("%w: treeData needs a string name and a children array", common.ErrorValidation)
	}
	return nil
}
