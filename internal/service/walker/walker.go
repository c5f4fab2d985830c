// Package walker expands a learner sample into the flat list of files that
// can be sent for analysis.
package walker

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/plagiarism-checker/urkund-service/internal/models"
	"github.com/RubachokBoss/plagiarism-checker/urkund-service/internal/service/classifier"
)

type Walker interface {
	// Walk returns the file records found in content. filename is used for
	// archive format detection and as the prefix of every nested record name.
	Walk(content []byte, sctx models.SampleContext, mimetype, filename string, level int) ([]models.FileRecord, error)
}

type walker struct {
	classifier     *classifier.Classifier
	maxLevel       int
	maxExtractSize int64
	tempDir        string
	logger         zerolog.Logger
}

type Option func(*walker)

// WithTempDir sets the parent directory for extraction scratch space.
func WithTempDir(dir string) Option {
	return func(w *walker) {
		w.tempDir = dir
	}
}

// WithMaxExtractSize caps the bytes a single archive may expand to.
func WithMaxExtractSize(n int64) Option {
	return func(w *walker) {
		w.maxExtractSize = n
	}
}

func NewWalker(cls *classifier.Classifier, maxLevel int, logger zerolog.Logger, opts ...Option) Walker {
	w := &walker{
		classifier: cls,
		maxLevel:   maxLevel,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *walker) Walk(content []byte, sctx models.SampleContext, mimetype, filename string, level int) ([]models.FileRecord, error) {
	path := ""
	if mimetype == classifier.MimeDirectory {
		path = filename
	}
	return w.walk(content, sctx, mimetype, filename, path, level)
}

func (w *walker) walk(content []byte, sctx models.SampleContext, mimetype, name, path string, level int) ([]models.FileRecord, error) {
	if level >= w.maxLevel {
		w.logger.Debug().
			Str("filename", name).
			Int("level", level).
			Msg("Max recursion level reached")
		return []models.FileRecord{{
			Filename: name,
			Mimetype: mimetype,
			Status:   models.FileStatusRejected,
			Reason:   models.ReasonMaxRecursionLevel,
			Content:  content,
		}}, nil
	}

	if level == 0 && sctx.IsActivity() {
		return w.walkActivity(content, sctx, mimetype, name)
	}

	switch w.classifier.Classify(mimetype) {
	case classifier.ClassDirectory:
		return w.walkDir(path, name, sctx, level+1, "")
	case classifier.ClassCompressed:
		return w.walkArchive(content, sctx, mimetype, name, level)
	case classifier.ClassAccepted:
		return []models.FileRecord{{
			Filename: name,
			Mimetype: mimetype,
			Status:   models.FileStatusAccepted,
			Content:  content,
		}}, nil
	default:
		// TODO: run text extraction over unsupported documents before rejecting them.
		return []models.FileRecord{{
			Filename: name,
			Mimetype: mimetype,
			Status:   models.FileStatusRejected,
			Reason:   models.ReasonUnsupportedMimetype,
			Content:  content,
		}}, nil
	}
}

func (w *walker) walkArchive(content []byte, sctx models.SampleContext, mimetype, name string, level int) ([]models.FileRecord, error) {
	dir, err := os.MkdirTemp(w.tempDir, "urkund-walk-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction directory: %w", err)
	}
	defer os.RemoveAll(dir)

	if err := extract(content, name, mimetype, dir, w.maxExtractSize); err != nil {
		return nil, fmt.Errorf("failed to extract %s: %w", name, err)
	}

	return w.walkDir(dir, name, sctx, level+1, "")
}

// walkActivity handles a structured activity payload: an archive holding a
// descriptor with the learner text and any number of attachments.
func (w *walker) walkActivity(content []byte, sctx models.SampleContext, mimetype, name string) ([]models.FileRecord, error) {
	dir, err := os.MkdirTemp(w.tempDir, "urkund-activity-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction directory: %w", err)
	}
	defer os.RemoveAll(dir)

	if detectFormat(name, mimetype) == formatUnknown {
		mimetype = "application/zip"
	}
	if err := extract(content, name, mimetype, dir, w.maxExtractSize); err != nil {
		return nil, fmt.Errorf("failed to extract activity %s: %w", name, err)
	}

	var records []models.FileRecord

	raw, err := os.ReadFile(filepath.Join(dir, DescriptorFilename))
	switch {
	case err == nil:
		text, err := activityText(sctx.Type, raw)
		if err != nil {
			return nil, err
		}
		records = append(records, models.FileRecord{
			Filename: sctx.Type + ".txt",
			Mimetype: "text/plain",
			Status:   models.FileStatusAccepted,
			Content:  []byte(text),
		})
	case errors.Is(err, os.ErrNotExist):
		w.logger.Debug().
			Str("filename", name).
			Str("activity", sctx.Type).
			Msg("Activity payload has no descriptor")
	default:
		return nil, fmt.Errorf("failed to read activity descriptor: %w", err)
	}

	attachments, err := w.walkDir(dir, name, sctx, 1, DescriptorFilename)
	if err != nil {
		return nil, err
	}
	return append(records, attachments...), nil
}

// walkDir walks every entry of the directory at path. Entries are named
// after prefix so records stay meaningful once the temporary tree is gone.
func (w *walker) walkDir(path, prefix string, sctx models.SampleContext, level int, skip string) ([]models.FileRecord, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}

	var records []models.FileRecord
	for _, entry := range entries {
		if skip != "" && entry.Name() == skip {
			continue
		}

		childPath := filepath.Join(path, entry.Name())
		childName := prefix + "/" + entry.Name()

		var found []models.FileRecord
		switch {
		case entry.IsDir():
			found, err = w.walk(nil, sctx, classifier.MimeDirectory, childName, childPath, level)
		case entry.Type().IsRegular():
			data, readErr := os.ReadFile(childPath)
			if readErr != nil {
				return nil, fmt.Errorf("failed to read %s: %w", childName, readErr)
			}
			mt := sniff(data, entry.Name(), w.classifier.Known())
			found, err = w.walk(data, sctx, mt, childName, "", level)
		default:
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, found...)
	}
	return records, nil
}
