package endpoints

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/lumina/internal/api"
	"github.com/jackzampolin/lumina/internal/home"
	"github.com/jackzampolin/lumina/internal/pipeline"
	"github.com/jackzampolin/lumina/internal/types"
)

// GenerateRequest is the request body for narrating a chapter.
type GenerateRequest struct {
	Voice          string `json:"voice,omitempty" validate:"max=64"`
	TargetLanguage string `json:"target_language,omitempty" validate:"language"`
}

// GenerateResponse is returned when a chapter run is accepted.
type GenerateResponse struct {
	BookID    string              `json:"book_id"`
	ChapterID string              `json:"chapter_id"`
	Status    types.ChapterStatus `json:"status"`
}

// GenerateChapterEndpoint handles POST /api/books/{id}/chapters/{chapter}/generate.
type GenerateChapterEndpoint struct{}

func (e *GenerateChapterEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/books/{id}/chapters/{chapter}/generate", e.handler
}

func (e *GenerateChapterEndpoint) RequiresInit() bool { return true }
func (e *GenerateChapterEndpoint) RequiresAuth() bool { return true }
func (e *GenerateChapterEndpoint) Group() string      { return "books" }

// handler godoc
//
//	@Summary		Narrate a chapter
//	@Description	Translate the chapter and synthesize its audio in the background. Progress is pushed on /api/events.
//	@Tags			chapters
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string			true	"Book ID"
//	@Param			chapter	path		string			true	"Chapter ID"
//	@Param			request	body		GenerateRequest	false	"Voice and target language"
//	@Success		202		{object}	GenerateResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Router			/api/books/{id}/chapters/{chapter}/generate [post]
func (e *GenerateChapterEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sess := sessionOrReject(w, r)
	if sess == nil {
		return
	}
	o := orchestratorOrReject(w, r)
	if o == nil {
		return
	}

	var req GenerateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	bookID, chapterID := r.PathValue("id"), r.PathValue("chapter")
	opts := pipeline.Options{Voice: req.Voice, Language: req.TargetLanguage}
	if err := o.Start(r.Context(), sess.User, bookID, chapterID, opts); err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, GenerateResponse{
		BookID:    bookID,
		ChapterID: chapterID,
		Status:    types.StatusProcessing,
	})
}

func (e *GenerateChapterEndpoint) Command(getServerURL func() string) *cobra.Command {
	var (
		req  GenerateRequest
		wait bool
	)
	cmd := &cobra.Command{
		Use:   "generate <book-id> <chapter-id>",
		Short: "Narrate a chapter",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := api.NewClient(getServerURL())
			path := fmt.Sprintf("/api/books/%s/chapters/%s/generate", args[0], args[1])

			var resp GenerateResponse
			if err := client.Post(ctx, path, req, &resp); err != nil {
				return err
			}
			if !wait {
				return api.Output(resp)
			}

			ticker := time.NewTicker(2 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
				}

				var book types.Book
				if err := client.Get(ctx, "/api/books/"+args[0], &book); err != nil {
					return err
				}
				ch := book.Chapter(args[1])
				if ch == nil {
					return fmt.Errorf("chapter %s disappeared", args[1])
				}
				if ch.Status != types.StatusProcessing {
					return api.Output(ch)
				}
				fmt.Fprintf(os.Stderr, "%s: %d%%\n", ch.Title, ch.Progress)
			}
		},
	}
	cmd.Flags().StringVar(&req.Voice, "voice", "", "Voice (default: configured voice)")
	cmd.Flags().StringVar(&req.TargetLanguage, "language", "", "Target language code (default: configured language)")
	cmd.Flags().BoolVar(&wait, "wait", false, "Poll until the run finishes")
	return cmd
}

// PartAudioEndpoint handles GET /api/books/{id}/chapters/{chapter}/parts/{part}/audio.
type PartAudioEndpoint struct{}

func (e *PartAudioEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/books/{id}/chapters/{chapter}/parts/{part}/audio", e.handler
}

func (e *PartAudioEndpoint) RequiresInit() bool { return true }
func (e *PartAudioEndpoint) RequiresAuth() bool { return true }
func (e *PartAudioEndpoint) Group() string      { return "books" }

// handler godoc
//
//	@Summary		Stream part audio
//	@Description	WAV audio of one part, with HTTP range support for seeking
//	@Tags			chapters
//	@Produce		audio/wav
//	@Security		BearerAuth
//	@Param			id			path	string	true	"Book ID"
//	@Param			chapter		path	string	true	"Chapter ID"
//	@Param			part		path	string	true	"Audio part ID"
//	@Param			download	query	bool	false	"Send as attachment"
//	@Success		200
//	@Success		206
//	@Failure		401	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/books/{id}/chapters/{chapter}/parts/{part}/audio [get]
func (e *PartAudioEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sess := sessionOrReject(w, r)
	if sess == nil {
		return
	}
	o := orchestratorOrReject(w, r)
	if o == nil {
		return
	}

	bookID, chapterID, partID := r.PathValue("id"), r.PathValue("chapter"), r.PathValue("part")
	path, _, err := o.PartFile(r.Context(), sess.User, bookID, chapterID, partID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			writeError(w, http.StatusNotFound, "audio file not found on disk")
			return
		}
		writeServiceError(w, r, err)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Cache-Control", "private, no-cache")
	if d, _ := strconv.ParseBool(r.URL.Query().Get("download")); d {
		name := home.SafeName(fmt.Sprintf("%s-%s-%s", bookID, chapterID, partID)) + ".wav"
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	}

	// Long files outlast the server write timeout
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	// ServeContent handles Range, If-Range and Last-Modified
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func (e *PartAudioEndpoint) Command(getServerURL func() string) *cobra.Command {
	var outFile string
	cmd := &cobra.Command{
		Use:   "download <book-id> <chapter-id> <part-id>",
		Short: "Download a part's WAV audio",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outFile == "" {
				outFile = home.SafeName(args[2]) + ".wav"
			}
			f, err := os.Create(outFile)
			if err != nil {
				return err
			}
			defer f.Close()

			client := api.NewClient(getServerURL())
			path := fmt.Sprintf("/api/books/%s/chapters/%s/parts/%s/audio?download=1", args[0], args[1], args[2])
			n, err := client.Download(cmd.Context(), path, f)
			if err != nil {
				_ = os.Remove(outFile)
				return err
			}
			fmt.Printf("Wrote %s (%d bytes)\n", outFile, n)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outFile, "file", "f", "", "Output file (default: <part-id>.wav)")
	return cmd
}

// PositionRequest records a playback position.
type PositionRequest struct {
	Seconds *float64 `json:"seconds" validate:"required,gte=0"`
}

// UpdatePositionEndpoint handles PUT /api/books/{id}/chapters/{chapter}/parts/{part}/position.
type UpdatePositionEndpoint struct{}

func (e *UpdatePositionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PUT", "/api/books/{id}/chapters/{chapter}/parts/{part}/position", e.handler
}

func (e *UpdatePositionEndpoint) RequiresInit() bool { return true }
func (e *UpdatePositionEndpoint) RequiresAuth() bool { return true }
func (e *UpdatePositionEndpoint) Group() string      { return "books" }

// handler godoc
//
//	@Summary		Save playback position
//	@Tags			chapters
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string			true	"Book ID"
//	@Param			chapter	path		string			true	"Chapter ID"
//	@Param			part	path		string			true	"Audio part ID"
//	@Param			request	body		PositionRequest	true	"Position in seconds"
//	@Success		200		{object}	types.AudioPart
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/api/books/{id}/chapters/{chapter}/parts/{part}/position [put]
func (e *UpdatePositionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sess := sessionOrReject(w, r)
	if sess == nil {
		return
	}
	o := orchestratorOrReject(w, r)
	if o == nil {
		return
	}

	var req PositionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	part, err := o.UpdatePosition(r.Context(), sess.User,
		r.PathValue("id"), r.PathValue("chapter"), r.PathValue("part"), *req.Seconds)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, part)
}

func (e *UpdatePositionEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "position <book-id> <chapter-id> <part-id> <seconds>",
		Short: "Save a playback position",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			seconds, err := strconv.ParseFloat(args[3], 64)
			if err != nil {
				return fmt.Errorf("invalid seconds %q: %w", args[3], err)
			}
			client := api.NewClient(getServerURL())
			path := fmt.Sprintf("/api/books/%s/chapters/%s/parts/%s/position", args[0], args[1], args[2])
			var part types.AudioPart
			if err := client.Put(cmd.Context(), path, PositionRequest{Seconds: &seconds}, &part); err != nil {
				return err
			}
			return api.Output(part)
		},
	}
}
