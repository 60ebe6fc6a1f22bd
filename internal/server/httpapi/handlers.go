package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/penter405/brainsync/internal/common"
	"github.com/penter405/brainsync/internal/netx"
	"github.com/penter405/brainsync/internal/server/drive"
	"github.com/penter405/brainsync/internal/server/services"
)

// maxJSONBody bounds every request body except sync-drive.
const maxJSONBody = 64 << 10

type successResponse struct {
	Success bool `json:"success"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return err
		}
		return fmt.Errorf("%w: request body must be JSON", common.ErrorValidation)
	}
	return nil
}

func (s *HTTPServer) beginLogin(w http.ResponseWriter, r *http.Request) {
	authURL, stateToken, err := s.auth.BeginLogin()
	if err != nil {
		s.logger.Error(r.Context(), "begin login failed", "error", err)
		writeError(w, err)
		return
	}
	http.SetCookie(w, s.cookies.state(stateToken, s.stateAge))
	http.Redirect(w, r, authURL, http.StatusFound)
}

func (s *HTTPServer) completeLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	stateToken := ""
	if c, err := r.Cookie(common.StateCookieName); err == nil {
		stateToken = c.Value
	}

	session, err := s.auth.CompleteLogin(ctx, q.Get("code"), q.Get("state"), stateToken, netx.ClientIP(r))
	if err != nil {
		s.logger.Warn(ctx, "login failed", "error", err)
		switch {
		case errors.Is(err, common.ErrInvalidToken):
			writeJSON(w, http.StatusForbidden, errorResponse{Error: "state verification failed"})
		case errors.Is(err, common.ErrUpstream):
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "OAuth login failed", Detail: upstreamDetail(err)})
		default:
			writeError(w, err)
		}
		return
	}

	http.SetCookie(w, s.cookies.session(session, s.sessions.MaxAge()))
	http.SetCookie(w, s.cookies.clear(common.StateCookieName))
	http.Redirect(w, r, s.opts.FrontendURL+"?token="+url.QueryEscape(session), http.StatusFound)
}

type meUser struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Picture      string `json:"picture"`
	HasDriveFile bool   `json:"hasDriveFile"`
}

type meResponse struct {
	LoggedIn bool    `json:"loggedIn"`
	User     *meUser `json:"user,omitempty"`
}

func (s *HTTPServer) me(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusOK, meResponse{})
		return
	}

	p, err := s.auth.Me(r.Context(), userID)
	if errors.Is(err, common.ErrorNotFound) {
		writeJSON(w, http.StatusOK, meResponse{})
		return
	}
	if err != nil {
		s.logger.Error(r.Context(), "me failed", "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, meResponse{LoggedIn: true, User: &meUser{
		Name:         p.Name,
		Email:        p.Email,
		Picture:      p.Picture,
		HasDriveFile: p.HasDriveFile,
	}})
}

func (s *HTTPServer) logout(w http.ResponseWriter, r *http.Request) {
	if userID := userIDFrom(r.Context()); userID != "" {
		s.auth.Logout(r.Context(), userID, netx.ClientIP(r))
	}
	http.SetCookie(w, s.cookies.clear(common.SessionCookieName))
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *HTTPServer) deleteAccount(w http.ResponseWriter, r *http.Request) {
	err := s.auth.DeleteAccount(r.Context(), userIDFrom(r.Context()), netx.ClientIP(r))
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		writeError(w, err)
		return
	}
	http.SetCookie(w, s.cookies.clear(common.SessionCookieName))
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

type fileIDRequest struct {
	FileID string `json:"fileId"`
}

type fileIDResponse struct {
	Success bool   `json:"success"`
	FileID  string `json:"fileId"`
}

func (s *HTTPServer) setDriveFile(w http.ResponseWriter, r *http.Request) {
	var req fileIDRequest
	if err := decodeBody(w, r, maxJSONBody, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := s.sync.SetTarget(r.Context(), userIDFrom(r.Context()), req.FileID, netx.ClientIP(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fileIDResponse{Success: true, FileID: req.FileID})
}

type createFileRequest struct {
	FileName   string `json:"fileName"`
	FolderName string `json:"folderName"`
}

type createFileResponse struct {
	Success  bool   `json:"success"`
	FileID   string `json:"fileId"`
	FileName string `json:"fileName"`
}

func (s *HTTPServer) createDriveFile(w http.ResponseWriter, r *http.Request) {
	var req createFileRequest
	if err := decodeBody(w, r, maxJSONBody, &req); err != nil {
		writeError(w, err)
		return
	}

	f, err := s.sync.CreateFile(r.Context(), userIDFrom(r.Context()), req.FileName, req.FolderName, netx.ClientIP(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, createFileResponse{Success: true, FileID: f.ID, FileName: req.FileName})
}

type syncRequest struct {
	TreeData      json.RawMessage `json:"treeData"`
	TriggerAction string          `json:"triggerAction"`
	SyncTimestamp string          `json:"syncTimestamp"`
}

func (s *HTTPServer) syncDrive(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := decodeBody(w, r, services.MaxSyncPayload, &req); err != nil {
		writeError(w, err)
		return
	}

	err := s.sync.Sync(r.Context(), userIDFrom(r.Context()), services.SyncRequest{
		TreeData:      req.TreeData,
		TriggerAction: req.TriggerAction,
		SyncTimestamp: req.SyncTimestamp,
	}, netx.ClientIP(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

type dataResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

func (s *HTTPServer) loadFromDrive(w http.ResponseWriter, r *http.Request) {
	data, err := s.sync.Load(r.Context(), userIDFrom(r.Context()), netx.ClientIP(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Success: true, Data: data})
}

func (s *HTTPServer) loadDriveFileByID(w http.ResponseWriter, r *http.Request) {
	var req fileIDRequest
	if err := decodeBody(w, r, maxJSONBody, &req); err != nil {
		writeError(w, err)
		return
	}
	s.loadByID(w, r, req.FileID)
}

func (s *HTTPServer) loadByID(w http.ResponseWriter, r *http.Request, fileID string) {
	data, err := s.sync.LoadByID(r.Context(), userIDFrom(r.Context()), fileID, netx.ClientIP(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Success: true, Data: data})
}

type filesResponse struct {
	Success bool         `json:"success"`
	Files   []drive.File `json:"files"`
}

func (s *HTTPServer) listDriveFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.sync.ListFiles(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, filesResponse{Success: true, Files: files})
}

type foldersResponse struct {
	Success       bool         `json:"success"`
	Folders       []drive.File `json:"folders"`
	CurrentFolder *string      `json:"currentFolder"`
}

func (s *HTTPServer) listDriveFolders(w http.ResponseWriter, r *http.Request) {
	l, err := s.sync.ListFolders(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	resp := foldersResponse{Success: true, Folders: l.Folders}
	if l.CurrentFolder != "" {
		resp.CurrentFolder = &l.CurrentFolder
	}
	writeJSON(w, http.StatusOK, resp)
}

type browseRequest struct {
	Action string `json:"action"`
	FileID string `json:"fileId"`
}

// browseDrive combines the listing and load-by-id operations behind one
// route: ?action=folders|files on GET, {"action":"load","fileId":...} on POST.
func (s *HTTPServer) browseDrive(w http.ResponseWriter, r *http.Request) {
	req := browseRequest{Action: r.URL.Query().Get("action")}
	if r.Method == http.MethodPost {
		if err := decodeBody(w, r, maxJSONBody, &req); err != nil {
			writeError(w, err)
			return
		}
		if req.Action == "" {
			req.Action = r.URL.Query().Get("action")
		}
	}

	switch req.Action {
	case "folders":
		s.listDriveFolders(w, r)
	case "files":
		s.listDriveFiles(w, r)
	case "load":
		if r.Method != http.MethodPost {
			writeError(w, fmt.Errorf("%w: load requires POST", common.ErrorValidation))
			return
		}
		s.loadByID(w, r, req.FileID)
	case "":
		writeError(w, fmt.Errorf("%w: missing action", common.ErrorValidation))
	default:
		writeError(w, fmt.Errorf("%w: unknown action %q", common.ErrorValidation, req.Action))
	}
}
