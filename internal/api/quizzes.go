package api

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/ad/go-telegram-quiz/internal/models"
	"github.com/ad/go-telegram-quiz/internal/services"
	"github.com/gin-gonic/gin"
)

type toggleRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

type submitRequest struct {
	QuestionID int64                `json:"question_id" binding:"required"`
	Answers    models.AnswerPayload `json:"answers"`
	Locale     string               `json:"locale"`
}

func (s *Server) listQuizzes(c *gin.Context) {
	quizzes, err := s.quizzes.ListQuizzes(c.Request.Context())
	if err != nil {
		respondError(c, s.log, err)
		return
	}
	Success(c, quizzes)
}

func (s *Server) createQuiz(c *gin.Context) {
	var req services.QuizInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	quiz, err := s.quizzes.CreateQuiz(c.Request.Context(), req)
	if err != nil {
		respondError(c, s.log, err)
		return
	}
	Created(c, quiz)
}

func (s *Server) getQuizQuestions(c *gin.Context) {
	id, ok := pathInt64(c, "quiz_id")
	if !ok {
		return
	}
	views, err := s.quizzes.ListQuestions(c.Request.Context(), id, c.Query("locale"))
	if err != nil {
		respondError(c, s.log, err)
		return
	}
	Success(c, views)
}

func (s *Server) deleteQuiz(c *gin.Context) {
	id, ok := pathInt64(c, "quiz_id")
	if !ok {
		return
	}
	if err := s.quizzes.DeleteQuiz(c.Request.Context(), id); err != nil {
		respondError(c, s.log, err)
		return
	}
	Success(c, gin.H{"deleted": id})
}

func (s *Server) toggleQuiz(c *gin.Context) {
	id, ok := pathInt64(c, "quiz_id")
	if !ok {
		return
	}
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	quiz, err := s.quizzes.SetActive(c.Request.Context(), id, *req.IsActive)
	if err != nil {
		respondError(c, s.log, err)
		return
	}
	Success(c, quiz)
}

// setAnswerLimit requires the answer_limit key; null clears the override.
func (s *Server) setAnswerLimit(c *gin.Context) {
	id, ok := pathInt64(c, "quiz_id")
	if !ok {
		return
	}
	var body map[string]json.RawMessage
	if err := c.ShouldBindJSON(&body); err != nil {
		BadRequest(c, err.Error())
		return
	}
	raw, present := body["answer_limit"]
	if !present {
		BadRequest(c, "answer_limit is required")
		return
	}
	var limit *int
	if err := json.Unmarshal(raw, &limit); err != nil {
		BadRequest(c, "answer_limit must be an integer or null")
		return
	}

	quiz, err := s.quizzes.SetAnswerLimit(c.Request.Context(), id, limit)
	if err != nil {
		respondError(c, s.log, err)
		return
	}
	Success(c, quiz)
}

func (s *Server) getQuizLimits(c *gin.Context) {
	quizID, ok := pathInt64(c, "quiz_id")
	if !ok {
		return
	}
	target := currentUser(c)
	if raw := c.Query("user_id"); raw != "" && raw != strconv.FormatInt(target.TelegramID, 10) {
		if !target.IsAdmin {
			Error(c, http.StatusForbidden, "admin privileges required")
			return
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			BadRequest(c, "invalid user_id")
			return
		}
		target, err = s.users.GetUser(id)
		if err != nil {
			respondError(c, s.log, err)
			return
		}
	}

	limits, err := s.submissions.ComputeLimits(c.Request.Context(), target, quizID)
	if err != nil {
		respondError(c, s.log, err)
		return
	}
	Success(c, limits)
}

func (s *Server) submitAnswer(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	result, err := s.submissions.Submit(c.Request.Context(), currentUser(c), req.QuestionID, req.Answers, req.Locale)
	if err != nil {
		respondError(c, s.log, err)
		return
	}
	Created(c, result)
}

func (s *Server) createQuestion(c *gin.Context) {
	var q models.Question
	if err := c.ShouldBindJSON(&q); err != nil {
		BadRequest(c, err.Error())
		return
	}
	q.ID = 0
	q.Images = nil
	created, err := s.quizzes.CreateQuestion(c.Request.Context(), &q)
	if err != nil {
		respondError(c, s.log, err)
		return
	}
	Created(c, created)
}

func (s *Server) getQuestion(c *gin.Context) {
	id, ok := pathInt64(c, "question_id")
	if !ok {
		return
	}
	view, err := s.quizzes.GetQuestionView(c.Request.Context(), id, c.Query("locale"))
	if err != nil {
		respondError(c, s.log, err)
		return
	}
	Success(c, view)
}

func (s *Server) deleteQuestion(c *gin.Context) {
	id, ok := pathInt64(c, "question_id")
	if !ok {
		return
	}
	deleteImages, _ := strconv.ParseBool(c.DefaultQuery("delete_images", "false"))
	if err := s.quizzes.DeleteQuestion(c.Request.Context(), id, deleteImages); err != nil {
		respondError(c, s.log, err)
		return
	}
	Success(c, gin.H{"deleted": id})
}

func (s *Server) importQuestions(c *gin.Context) {
	quizID, ok := pathInt64(c, "quiz_id")
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxUploadBytes)
	form, err := c.MultipartForm()
	if err != nil {
		BadRequest(c, "multipart form expected")
		return
	}

	manifests := form.File["manifest"]
	if len(manifests) != 1 {
		BadRequest(c, "exactly one manifest file is required")
		return
	}
	data, err := readFormFile(manifests[0])
	if err != nil {
		BadRequest(c, "cannot read manifest")
		return
	}

	ids, err := s.importer.Import(c.Request.Context(), quizID, data, uploadsOf(form.File["images"]))
	if err != nil {
		respondError(c, s.log, err)
		return
	}
	Created(c, gin.H{"question_ids": ids})
}

func (s *Server) uploadImages(c *gin.Context) {
	quizID, ok := pathInt64(c, "quiz_id")
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxUploadBytes)
	form, err := c.MultipartForm()
	if err != nil {
		BadRequest(c, "multipart form expected")
		return
	}

	urls, err := s.quizzes.UploadQuizImages(c.Request.Context(), quizID, uploadsOf(form.File["files"]))
	if err != nil {
		respondError(c, s.log, err)
		return
	}
	Created(c, gin.H{"urls": urls})
}

func uploadsOf(files []*multipart.FileHeader) []services.Upload {
	uploads := make([]services.Upload, 0, len(files))
	for _, fh := range files {
		uploads = append(uploads, services.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}
	return uploads
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
