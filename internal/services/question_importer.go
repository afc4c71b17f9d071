package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ad/go-telegram-quiz/internal/db"
	"github.com/ad/go-telegram-quiz/internal/models"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const manifestSchema = `{
  "type": "object",
  "required": ["questions"],
  "properties": {
    "questions": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["type", "text"],
        "properties": {
          "type": {"enum": ["single", "multiple", "open"]},
          "text": {"type": "object", "additionalProperties": {"type": "string"}},
          "options": {"type": "object", "additionalProperties": {"type": "array", "items": {"type": "string"}}},
          "correct_answers": {"type": "object", "additionalProperties": {"type": "array", "items": {"type": "string"}}},
          "points": {"type": "integer", "minimum": 1},
          "duration_seconds": {"type": "integer", "minimum": 0},
          "images": {"type": "array", "items": {"type": ["integer", "string"]}}
        },
        "additionalProperties": false
      }
    }
  }
}`

var manifestSchemaLoader = gojsonschema.NewStringLoader(manifestSchema)

type ManifestQuestion struct {
	Type            models.QuestionType  `json:"type"`
	Text            models.LocalizedText `json:"text"`
	Options         models.LocalizedList `json:"options"`
	CorrectAnswers  models.LocalizedList `json:"correct_answers"`
	Points          int                  `json:"points"`
	DurationSeconds *int                 `json:"duration_seconds"`
	Images          []json.RawMessage    `json:"images"`
}

type Manifest struct {
	Questions []ManifestQuestion `json:"questions"`
}

// QuestionImporter loads a batch of questions from a JSON or YAML manifest.
// Image references are indexes into the uploaded files or their filenames.
type QuestionImporter struct {
	quizRepo     *db.QuizRepository
	questionRepo *db.QuestionRepository
	media        MediaStore
	maxImage     int64
	log          *zap.Logger
}

func NewQuestionImporter(quizRepo *db.QuizRepository, questionRepo *db.QuestionRepository, media MediaStore, maxImage int64, log *zap.Logger) *QuestionImporter {
	return &QuestionImporter{
		quizRepo:     quizRepo,
		questionRepo: questionRepo,
		media:        media,
		maxImage:     maxImage,
		log:          log.Named("importer"),
	}
}

// ParseManifest decodes and schema-validates a manifest. YAML is accepted
// when the document is not JSON.
func ParseManifest(data []byte) (*Manifest, error) {
	var doc any
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("%w: invalid JSON manifest: %v", models.ErrValidation, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: invalid YAML manifest: %v", models.ErrValidation, err)
		}
	}

	normalized, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: manifest is not JSON compatible: %v", models.ErrValidation, err)
	}

	result, err := gojsonschema.Validate(manifestSchemaLoader, gojsonschema.NewBytesLoader(normalized))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("%w: manifest: %s", models.ErrValidation, strings.Join(msgs, "; "))
	}

	var m Manifest
	if err := json.Unmarshal(normalized, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	return &m, nil
}

func resolveImageRef(raw json.RawMessage, files []Upload) (int, error) {
	var idx int
	if err := json.Unmarshal(raw, &idx); err == nil {
		if idx < 0 || idx >= len(files) {
			return 0, fmt.Errorf("%w: image index %d out of range (%d files)", models.ErrValidation, idx, len(files))
		}
		return idx, nil
	}
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return 0, fmt.Errorf("%w: image reference %s", models.ErrValidation, string(raw))
	}
	for i, f := range files {
		if f.Filename == name || filepath.Base(f.Filename) == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: image %q was not uploaded", models.ErrValidation, name)
}

// Import validates every question before storing any of them.
func (imp *QuestionImporter) Import(ctx context.Context, quizID int64, data []byte, files []Upload) ([]int64, error) {
	if _, err := imp.quizRepo.GetByID(quizID); err != nil {
		return nil, err
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, err
	}

	questions := make([]*models.Question, 0, len(m.Questions))
	refs := make([][]int, 0, len(m.Questions))
	used := map[int]bool{}
	for i, mq := range m.Questions {
		q := &models.Question{
			QuizID:          quizID,
			Type:            mq.Type,
			Text:            mq.Text,
			Options:         mq.Options,
			CorrectAnswers:  mq.CorrectAnswers,
			Points:          mq.Points,
			DurationSeconds: mq.DurationSeconds,
		}
		if err := ValidateQuestion(q); err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}

		var idx []int
		for _, raw := range mq.Images {
			n, err := resolveImageRef(raw, files)
			if err != nil {
				return nil, fmt.Errorf("question %d: %w", i+1, err)
			}
			idx = append(idx, n)
			used[n] = true
		}
		questions = append(questions, q)
		refs = append(refs, idx)
	}

	if len(used) > 0 && imp.media == nil {
		return nil, fmt.Errorf("media storage is not configured")
	}
	for n := range used {
		if err := ValidateImage(files[n], imp.maxImage); err != nil {
			return nil, err
		}
	}

	urls := map[int]string{}
	for n := range used {
		url, err := saveUpload(ctx, imp.media, quizImageKey(quizID, randomImageName(files[n])), files[n])
		if err != nil {
			return nil, err
		}
		urls[n] = url
	}
	for i, q := range questions {
		for _, n := range refs[i] {
			q.Images = append(q.Images, urls[n])
		}
	}

	ids, err := imp.questionRepo.CreateBatch(questions)
	if err != nil {
		for _, url := range urls {
			_ = imp.media.Delete(ctx, url)
		}
		return nil, err
	}
	imp.log.Info("questions imported", zap.Int64("quiz_id", quizID), zap.Int("count", len(ids)), zap.Int("images", len(urls)))
	return ids, nil
}
