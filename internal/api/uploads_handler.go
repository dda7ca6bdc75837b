package api

import (
	"errors"
	"log"
	"net/http"
	"path"

	"github.com/courierapp/backend/internal/models"
	"github.com/courierapp/backend/internal/objectstore"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// maxUploadBytes caps a single multipart upload (videos are the largest
// accepted payload).
const maxUploadBytes = 64 << 20

// UploadsHandler accepts media uploads and hands back the download URL that
// becomes a photo/video message payload or a profile picture.
type UploadsHandler struct {
	pool  *pgxpool.Pool
	store objectstore.Store
}

// NewUploadsHandler creates a new UploadsHandler instance.
func NewUploadsHandler(pool *pgxpool.Pool, store objectstore.Store) *UploadsHandler {
	return &UploadsHandler{
		pool:  pool,
		store: store,
	}
}

// Upload stores the multipart "file" part. The "kind" form value selects the
// destination: "profile_picture" (one canonical object per user, overwritten
// in place), "message_photo", or "message_video". Message media gets a
// random object name so uploads never collide.
func (h *UploadsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, ok := GetSessionFromContext(ctx, w, h.pool)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "Invalid multipart request", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file part is required", http.StatusBadRequest)
		return
	}
	defer func() {
		_ = file.Close()
	}()

	var targetPath string
	switch r.FormValue("kind") {
	case "profile_picture":
		targetPath = path.Join(objectstore.ProfilePicturePrefix, objectstore.ProfilePictureFileName(session.Key))
	case "message_photo":
		targetPath = path.Join(objectstore.MessagePhotoPrefix, uuid.New().String()+extensionOr(header.Filename, ".png"))
	case "message_video":
		targetPath = path.Join(objectstore.MessageVideoPrefix, uuid.New().String()+extensionOr(header.Filename, ".mov"))
	default:
		http.Error(w, "kind must be profile_picture, message_photo or message_video", http.StatusBadRequest)
		return
	}

	url, err := h.store.UploadObject(ctx, file, targetPath)
	if err != nil {
		log.Printf("UploadsHandler: Failed to store object: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := models.UploadResponse{URL: url}
	if !WriteJSONResponse(w, http.StatusCreated, response) {
		return
	}
}

// GetProfilePicture resolves the download URL of a user's profile picture.
// The key query parameter selects whose; it defaults to the caller.
func (h *UploadsHandler) GetProfilePicture(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, ok := GetSessionFromContext(ctx, w, h.pool)
	if !ok {
		return
	}

	key := r.URL.Query().Get("key")
	if key == "" {
		key = session.Key
	}

	targetPath := path.Join(objectstore.ProfilePicturePrefix, objectstore.ProfilePictureFileName(key))
	url, err := h.store.ResolveDownloadURL(ctx, targetPath)
	if err != nil {
		if errors.Is(err, objectstore.ErrObjectNotFound) {
			http.Error(w, "Profile picture not found", http.StatusNotFound)
			return
		}
		log.Printf("UploadsHandler: Failed to resolve profile picture: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := models.UploadResponse{URL: url}
	if !WriteJSONResponse(w, http.StatusOK, response) {
		return
	}
}

// extensionOr returns the filename's extension, or fallback when it has
// none.
func extensionOr(filename, fallback string) string {
	if ext := path.Ext(filename); ext != "" {
		return ext
	}
	return fallback
}
