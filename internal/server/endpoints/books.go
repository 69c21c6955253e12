package endpoints

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/lumina/internal/api"
	"github.com/jackzampolin/lumina/internal/pipeline"
	"github.com/jackzampolin/lumina/internal/svcctx"
	"github.com/jackzampolin/lumina/internal/types"
)

const (
	// defaultMaxUploadMB applies when the config sets no limit.
	defaultMaxUploadMB = 100

	// importTimeout bounds text extraction plus chapter segmentation.
	importTimeout = 10 * time.Minute

	pdfContentType = "application/pdf"
)

// UploadForm holds the non-file fields of a book upload.
type UploadForm struct {
	Title string `json:"title" validate:"max=200"`
}

// BooksResponse lists books.
type BooksResponse struct {
	Books []*types.Book `json:"books"`
	Total int           `json:"total"`
}

// Table lists one book per row for `-o table`.
func (r BooksResponse) Table() ([]string, [][]string) {
	rows := make([][]string, 0, len(r.Books))
	for _, b := range r.Books {
		done := 0
		for _, ch := range b.Chapters {
			if ch.Status == types.StatusCompleted {
				done++
			}
		}
		rows = append(rows, []string{
			b.ID,
			b.Title,
			fmt.Sprintf("%d/%d", done, len(b.Chapters)),
			b.CreatedAt.Format(time.DateTime),
		})
	}
	return []string{"ID", "TITLE", "NARRATED", "CREATED"}, rows
}

// UploadBookEndpoint handles POST /api/books.
type UploadBookEndpoint struct{}

var _ api.Endpoint = (*UploadBookEndpoint)(nil)

func (e *UploadBookEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/books", e.handler
}

func (e *UploadBookEndpoint) RequiresInit() bool { return true }
func (e *UploadBookEndpoint) RequiresAuth() bool { return true }
func (e *UploadBookEndpoint) Group() string      { return "books" }

// handler godoc
//
//	@Summary		Upload a book
//	@Description	Upload a PDF; its text is extracted and split into chapters before the book is stored
//	@Tags			books
//	@Accept			mpfd
//	@Produce		json
//	@Security		BearerAuth
//	@Param			file	formData	file	true	"PDF document"
//	@Param			title	formData	string	false	"Book title (derived from filename if not provided)"
//	@Success		201		{object}	types.Book
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		413		{object}	ErrorResponse
//	@Failure		502		{object}	ErrorResponse
//	@Router			/api/books [post]
func (e *UploadBookEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sess := sessionOrReject(w, r)
	if sess == nil {
		return
	}
	o := orchestratorOrReject(w, r)
	if o == nil {
		return
	}
	ctx := r.Context()

	maxMB := int64(defaultMaxUploadMB)
	if cm := svcctx.ConfigFrom(ctx); cm != nil && cm.Get().Server.MaxUploadMB > 0 {
		maxMB = int64(cm.Get().Server.MaxUploadMB)
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxMB<<20)

	// Parse multipart form with 32MB in memory, the rest spills to disk
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d MB", maxMB))
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["file"]
	if len(files) != 1 {
		writeError(w, http.StatusBadRequest, "exactly one file is required")
		return
	}
	fh := files[0]

	if mt, _, err := mime.ParseMediaType(fh.Header.Get("Content-Type")); err != nil || mt != pdfContentType {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("file %s is not a PDF", fh.Filename))
		return
	}

	form := UploadForm{Title: strings.TrimSpace(r.FormValue("title"))}
	if v := svcctx.ValidatorFrom(ctx); v != nil {
		if err := v.Validate(&form); err != nil {
			writeServiceError(w, r, err)
			return
		}
	}
	if form.Title == "" {
		form.Title = pipeline.TitleFromFilename(fh.Filename)
	}

	src, err := fh.Open()
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to open uploaded file: %v", err))
		return
	}
	data, err := io.ReadAll(src)
	src.Close()
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read uploaded file: %v", err))
		return
	}

	// Segmentation can outlast the server write timeout
	_ = http.NewResponseController(w).SetWriteDeadline(time.Now().Add(importTimeout))

	book, err := o.Import(ctx, sess.User, form.Title, data)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	o.View(book)
	writeJSON(w, http.StatusCreated, book)
}

func (e *UploadBookEndpoint) Command(getServerURL func() string) *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:   "upload <file.pdf>",
		Short: "Upload a PDF and split it into chapters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			fields := map[string]string{}
			if title != "" {
				fields["title"] = title
			}
			client := api.NewClient(getServerURL())
			var book types.Book
			if err := client.Upload(cmd.Context(), "/api/books", "file", filepath.Base(args[0]), pdfContentType, f, fields, &book); err != nil {
				return err
			}
			return api.Output(book)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Book title (default: file name)")
	return cmd
}

// ListBooksEndpoint handles GET /api/books.
type ListBooksEndpoint struct{}

func (e *ListBooksEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/books", e.handler
}

func (e *ListBooksEndpoint) RequiresInit() bool { return true }
func (e *ListBooksEndpoint) RequiresAuth() bool { return true }
func (e *ListBooksEndpoint) Group() string      { return "books" }

// handler godoc
//
//	@Summary		List books
//	@Description	The current user's books, newest first
//	@Tags			books
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	BooksResponse
//	@Failure		401	{object}	ErrorResponse
//	@Router			/api/books [get]
func (e *ListBooksEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sess := sessionOrReject(w, r)
	if sess == nil {
		return
	}
	o := orchestratorOrReject(w, r)
	if o == nil {
		return
	}

	books, err := o.Books(r.Context(), sess.User)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if books == nil {
		books = []*types.Book{}
	}
	writeJSON(w, http.StatusOK, BooksResponse{Books: books, Total: len(books)})
}

func (e *ListBooksEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your books",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp BooksResponse
			if err := client.Get(cmd.Context(), "/api/books", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// GetBookEndpoint handles GET /api/books/{id}.
type GetBookEndpoint struct{}

func (e *GetBookEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/books/{id}", e.handler
}

func (e *GetBookEndpoint) RequiresInit() bool { return true }
func (e *GetBookEndpoint) RequiresAuth() bool { return true }
func (e *GetBookEndpoint) Group() string      { return "books" }

// handler godoc
//
//	@Summary		Get book by ID
//	@Description	One book with chapter status, progress and audio parts
//	@Tags			books
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Book ID"
//	@Success		200	{object}	types.Book
//	@Failure		401	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/books/{id} [get]
func (e *GetBookEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sess := sessionOrReject(w, r)
	if sess == nil {
		return
	}
	o := orchestratorOrReject(w, r)
	if o == nil {
		return
	}

	book, err := o.Book(r.Context(), sess.User, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (e *GetBookEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a book by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var book types.Book
			if err := client.Get(cmd.Context(), "/api/books/"+args[0], &book); err != nil {
				return err
			}
			return api.Output(book)
		},
	}
}

// DeleteBookEndpoint handles DELETE /api/books/{id}.
type DeleteBookEndpoint struct{}

func (e *DeleteBookEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/books/{id}", e.handler
}

func (e *DeleteBookEndpoint) RequiresInit() bool { return true }
func (e *DeleteBookEndpoint) RequiresAuth() bool { return true }
func (e *DeleteBookEndpoint) Group() string      { return "books" }

// handler godoc
//
//	@Summary		Delete a book
//	@Description	Remove the book record, its source PDF and all generated audio
//	@Tags			books
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Book ID"
//	@Success		204
//	@Failure		401	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/books/{id} [delete]
func (e *DeleteBookEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sess := sessionOrReject(w, r)
	if sess == nil {
		return
	}
	o := orchestratorOrReject(w, r)
	if o == nil {
		return
	}

	if err := o.DeleteBook(r.Context(), sess.User, r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (e *DeleteBookEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a book and its audio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Delete(cmd.Context(), "/api/books/"+args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted %s\n", args[0])
			return nil
		},
	}
}
