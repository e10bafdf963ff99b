package blog

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/bloghub/bloghub/internal/auth"
	"github.com/bloghub/bloghub/internal/mediastore"
	"github.com/bloghub/bloghub/internal/telemetry/tracing"
	"github.com/bloghub/bloghub/pkg"
)

// max accepted size of a cover image upload
const maxUploadSize = 10 << 20

type newBlogRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type updateBlogRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service: service,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	// /blogs/user/me has to come before /blogs/{id}
	router.HandleFunc("/blogs/user/me", handler.handleMine).Methods("GET").Name("my-blogs")
	router.HandleFunc("/blogs", handler.handleAll).Methods("GET").Name("all-blogs")
	router.HandleFunc("/blogs", handler.handleNew).Methods("POST", "OPTIONS").Name("new-blog")
	router.HandleFunc("/blogs/{id}", handler.handleGet).Methods("GET").Name("get-blog")
	router.HandleFunc("/blogs/{id}", handler.handleUpdate).Methods("PUT", "OPTIONS").Name("update-blog")
	router.HandleFunc("/blogs/{id}", handler.handleDelete).Methods("DELETE", "OPTIONS").Name("delete-blog")
}

func (handler *Handler) handleAll(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "blogHandler.all")
	defer span.End()

	allBlogs, err := handler.service.All(ctx)
	if err != nil {
		log.Errorf("get all blogs error: %s", err)
		http.Error(w, "get all blogs error", http.StatusInternalServerError)
		return
	}

	writePostsResponse(w, allBlogs)
}

func (handler *Handler) handleMine(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "blogHandler.mine")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	myBlogs, err := handler.service.AllByAuthor(ctx, userID)
	if err != nil {
		log.Errorf("get blogs of author %d error: %s", userID, err)
		http.Error(w, "get blogs error", http.StatusInternalServerError)
		return
	}

	writePostsResponse(w, myBlogs)
}

func (handler *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "blogHandler.get")
	defer span.End()

	id, ok := blogIDFromRequest(w, r)
	if !ok {
		return
	}

	post, err := handler.service.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrBlogNotFound) {
			http.Error(w, "blog not found", http.StatusNotFound)
			return
		}
		log.Errorf("get blog %d: %s", id, err)
		http.Error(w, "get blog error", http.StatusInternalServerError)
		return
	}

	postJson, err := json.Marshal(post)
	if err != nil {
		log.Errorf("marshal blog error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, postJson)
}

func (handler *Handler) handleNew(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "blogHandler.new")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	var newBlogReq newBlogRequest
	var image *ImageUpload
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			log.Errorf("add new blog failed, parse multipart form: %s", err)
			http.Error(w, "parse form error", http.StatusBadRequest)
			return
		}
		newBlogReq = newBlogRequest{
			Title:   r.FormValue("title"),
			Content: r.FormValue("content"),
		}

		imageFile, imageHeader, err := r.FormFile("image")
		switch {
		case err == nil:
			defer imageFile.Close()
			image = &ImageUpload{
				Filename: imageHeader.Filename,
				Content:  imageFile,
			}
		case errors.Is(err, http.ErrMissingFile):
			// no cover image, fine
		default:
			log.Errorf("add new blog failed, get image from form: %s", err)
			http.Error(w, "image read error", http.StatusBadRequest)
			return
		}
	} else {
		if err := json.NewDecoder(r.Body).Decode(&newBlogReq); err != nil {
			log.Errorf("new blog, unmarshal json params: %s", err)
			http.Error(w, "add blog failed", http.StatusBadRequest)
			return
		}
	}

	if newBlogReq.Title == "" {
		http.Error(w, "error, title empty", http.StatusBadRequest)
		return
	}
	if newBlogReq.Content == "" {
		http.Error(w, "error, content empty", http.StatusBadRequest)
		return
	}

	post, err := handler.service.Create(ctx, userID, newBlogReq.Title, newBlogReq.Content, image)
	if err != nil {
		log.Errorf("add new blog failed: %s", err)
		writeServiceError(w, err, "add new blog failed")
		return
	}

	postJson, err := json.Marshal(post)
	if err != nil {
		log.Errorf("marshal new blog error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, postJson, http.StatusCreated)
}

func (handler *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "blogHandler.update")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "PUT, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	id, ok := blogIDFromRequest(w, r)
	if !ok {
		return
	}

	var updateBlogReq updateBlogRequest
	var image *ImageUpload
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			log.Errorf("update blog failed, parse multipart form: %s", err)
			http.Error(w, "parse form error", http.StatusBadRequest)
			return
		}
		updateBlogReq = updateBlogRequest{
			Title:   r.FormValue("title"),
			Content: r.FormValue("content"),
		}

		imageFile, imageHeader, err := r.FormFile("image")
		switch {
		case err == nil:
			defer imageFile.Close()
			image = &ImageUpload{
				Filename: imageHeader.Filename,
				Content:  imageFile,
			}
		case errors.Is(err, http.ErrMissingFile):
			// keeping the current image
		default:
			log.Errorf("update blog failed, get image from form: %s", err)
			http.Error(w, "image read error", http.StatusBadRequest)
			return
		}
	} else {
		if err := json.NewDecoder(r.Body).Decode(&updateBlogReq); err != nil {
			log.Errorf("update blog, unmarshal json params: %s", err)
			http.Error(w, "update blog failed", http.StatusBadRequest)
			return
		}
	}

	post, err := handler.service.Update(ctx, userID, id, updateBlogReq.Title, updateBlogReq.Content, image)
	if err != nil {
		log.Errorf("update blog %d failed: %s", id, err)
		writeServiceError(w, err, "update blog failed")
		return
	}

	postJson, err := json.Marshal(post)
	if err != nil {
		log.Errorf("marshal updated blog error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, postJson)
}

func (handler *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "blogHandler.delete")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "DELETE, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	id, ok := blogIDFromRequest(w, r)
	if !ok {
		return
	}

	if err := handler.service.Delete(ctx, userID, id); err != nil {
		log.Errorf("delete blog %d: %s", id, err)
		writeServiceError(w, err, "delete blog failed")
		return
	}

	pkg.WriteTextResponseOK(w, fmt.Sprintf("deleted:%d", id))
}

func blogIDFromRequest(w http.ResponseWriter, r *http.Request) (int, bool) {
	vars := mux.Vars(r)

	idStr := vars["id"]
	if idStr == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return 0, false
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return 0, false
	}

	return id, true
}

func writeServiceError(w http.ResponseWriter, err error, fallbackMsg string) {
	switch {
	case errors.Is(err, ErrBlogNotFound):
		http.Error(w, "blog not found", http.StatusNotFound)
	case errors.Is(err, ErrNotOwner):
		http.Error(w, "no can do", http.StatusForbidden)
	case errors.Is(err, ErrBlogTitleOrContentEmpty):
		http.Error(w, "error, title or content empty", http.StatusBadRequest)
	case errors.Is(err, ErrBlogTitleTooLong):
		http.Error(w, "error, title too long", http.StatusBadRequest)
	case errors.Is(err, mediastore.ErrUploadFailed):
		http.Error(w, "image upload failed", http.StatusBadGateway)
	default:
		http.Error(w, fallbackMsg, http.StatusInternalServerError)
	}
}

func writePostsResponse(w http.ResponseWriter, posts []*BlogPost) {
	if posts == nil {
		posts = []*BlogPost{}
	}

	postsJson, err := json.Marshal(posts)
	if err != nil {
		log.Errorf("marshal blogs error: %s", err)
		http.Error(w, "marshal blogs error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, postsJson)
}
