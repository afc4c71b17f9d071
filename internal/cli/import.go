package cli

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"sort"

	"github.com/ad/go-telegram-quiz/internal/services"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewImportCmd loads a question manifest into an existing quiz.
func NewImportCmd(configPath *string) *cobra.Command {
	var (
		quizID    int64
		manifest  string
		imagesDir string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import questions from a JSON or YAML manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()

			data, err := os.ReadFile(manifest)
			if err != nil {
				return fmt.Errorf("read manifest: %w", err)
			}
			files, err := uploadsFromDir(imagesDir)
			if err != nil {
				return err
			}

			store, err := openStorage(cfg.DB.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			media, err := newMediaStore(cmd.Context(), cfg.Media)
			if err != nil {
				return fmt.Errorf("init media store: %w", err)
			}

			importer := services.NewQuestionImporter(store.quizzes, store.questions, media, cfg.Media.MaxBytes, log)
			ids, err := importer.Import(cmd.Context(), quizID, data, files)
			if err != nil {
				return err
			}
			log.Info("questions imported", zap.Int64("quiz_id", quizID), zap.Int("count", len(ids)))
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d questions into quiz %d\n", len(ids), quizID)
			return nil
		},
	}

	cmd.Flags().Int64Var(&quizID, "quiz", 0, "target quiz id")
	cmd.Flags().StringVar(&manifest, "manifest", "", "path to the manifest file")
	cmd.Flags().StringVar(&imagesDir, "images-dir", "", "directory with images referenced by the manifest")
	_ = cmd.MarkFlagRequired("quiz")
	_ = cmd.MarkFlagRequired("manifest")
	return cmd
}

// uploadsFromDir lists regular files in dir sorted by name, so manifest
// indexes refer to a stable order.
func uploadsFromDir(dir string) ([]services.Upload, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read images dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var uploads []services.Upload
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		path := filepath.Join(dir, e.Name())
		uploads = append(uploads, services.Upload{
			Filename:    e.Name(),
			ContentType: mime.TypeByExtension(filepath.Ext(e.Name())),
			Size:        info.Size(),
			Open: func() (io.ReadCloser, error) {
				return os.Open(path)
			},
		})
	}
	return uploads, nil
}
