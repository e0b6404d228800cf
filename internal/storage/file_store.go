package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"
)

type sentStory struct {
	Key      string    `json:"key"`
	Headline string    `json:"headline"`
	URL      string    `json:"url"`
	SentAt   time.Time `json:"sent_at"`
}

type fileContents struct {
	Reports []Report    `json:"reports"`
	Sent    []sentStory `json:"sent"`
}

// FileStore keeps reports and sent stories in a single JSON file.
type FileStore struct {
	filePath   string
	sentTTL    time.Duration
	maxReports int
	now        func() time.Time

	mu      sync.RWMutex
	reports []Report
	sent    map[string]sentStory
}

func NewFileStore(filePath string, sentTTL time.Duration) *FileStore {
	return &FileStore{
		filePath:   filePath,
		sentTTL:    sentTTL,
		maxReports: DefaultMaxReports,
		now:        time.Now,
		sent:       make(map[string]sentStory),
	}
}

// Load reads the file if it exists, dropping expired sent stories.
func (fs *FileStore) Load() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := os.ReadFile(fs.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read store file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var contents fileContents
	if err := json.Unmarshal(data, &contents); err != nil {
		return fmt.Errorf("failed to unmarshal store: %w", err)
	}

	fs.reports = contents.Reports
	cutoff := fs.cutoff()
	for _, s := range contents.Sent {
		if s.SentAt.After(cutoff) {
			fs.sent[s.Key] = s
		}
	}
	return nil
}

// save writes the current state. Callers hold fs.mu.
func (fs *FileStore) save() error {
	contents := fileContents{
		Reports: fs.reports,
		Sent:    make([]sentStory, 0, len(fs.sent)),
	}
	for _, s := range fs.sent {
		contents.Sent = append(contents.Sent, s)
	}
	sort.Slice(contents.Sent, func(i, j int) bool {
		return contents.Sent[i].SentAt.Before(contents.Sent[j].SentAt)
	})

	data, err := json.MarshalIndent(contents, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}

	tmp := fs.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write store file: %w", err)
	}
	if err := os.Rename(tmp, fs.filePath); err != nil {
		return fmt.Errorf("failed to replace store file: %w", err)
	}
	return nil
}

func (fs *FileStore) SaveReport(ctx context.Context, r Report) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.reports = append(fs.reports, r)
	sort.SliceStable(fs.reports, func(i, j int) bool {
		return fs.reports[i].CreatedAt.Before(fs.reports[j].CreatedAt)
	})
	if n := len(fs.reports); n > fs.maxReports {
		fs.reports = append([]Report(nil), fs.reports[n-fs.maxReports:]...)
	}
	return fs.save()
}

func (fs *FileStore) LatestReport(ctx context.Context) (*Report, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if len(fs.reports) == 0 {
		return nil, ErrNotFound
	}
	r := fs.reports[len(fs.reports)-1]
	return &r, nil
}

func (fs *FileStore) ListReports(ctx context.Context, limit int) ([]Report, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	out := make([]Report, 0, len(fs.reports))
	for i := len(fs.reports) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, fs.reports[i])
	}
	return out, nil
}

func (fs *FileStore) IsAlreadySent(ctx context.Context, key string) (bool, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	s, ok := fs.sent[key]
	return ok && s.SentAt.After(fs.cutoff()), nil
}

func (fs *FileStore) MarkAsSent(ctx context.Context, key, headline, url string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.sent[key] = sentStory{Key: key, Headline: headline, URL: url, SentAt: fs.now()}
	return fs.save()
}

func (fs *FileStore) Cleanup(ctx context.Context) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	cutoff := fs.cutoff()
	for key, s := range fs.sent {
		if !s.SentAt.After(cutoff) {
			delete(fs.sent, key)
		}
	}
	return fs.save()
}

func (fs *FileStore) Close() error {
	return nil
}

func (fs *FileStore) cutoff() time.Time {
	return fs.now().Add(-fs.sentTTL)
}
