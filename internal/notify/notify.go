package notify

import (
	"sync"

	"go.uber.org/zap"
)

// MigrationStep describes the migration currently running.
type MigrationStep struct {
	Version     int    `json:"version"`
	TotalSteps  int    `json:"total_steps"`
	CurrentStep int    `json:"current_step"`
	Description string `json:"description,omitempty"`
}

// MigrationStatus is the payload of a data migration progress report.
type MigrationStatus struct {
	StartVersion     int           `json:"start_version"`
	TargetVersion    int           `json:"target_version"`
	CurrentMigration MigrationStep `json:"current_migration"`
}

// Notifier is the sink for user-facing notifications. It is injected
// explicitly wherever notifications are produced; there is no process-wide
// aggregator.
type Notifier interface {
	MigrationStatus(status MigrationStatus)
	Error(message string)
	UnresolvableAsset(assetID, counterparty string)
}

// ZapNotifier emits notifications through a structured logger.
type ZapNotifier struct {
	logger *zap.Logger
}

func NewZapNotifier(logger *zap.Logger) *ZapNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapNotifier{logger: logger}
}

func (n *ZapNotifier) MigrationStatus(status MigrationStatus) {
	n.logger.Info("data_migration_status",
		zap.Int("start_version", status.StartVersion),
		zap.Int("target_version", status.TargetVersion),
		zap.Int("version", status.CurrentMigration.Version),
		zap.Int("total_steps", status.CurrentMigration.TotalSteps),
		zap.Int("current_step", status.CurrentMigration.CurrentStep),
		zap.String("description", status.CurrentMigration.Description),
	)
}

func (n *ZapNotifier) Error(message string) {
	n.logger.Error(message)
}

func (n *ZapNotifier) UnresolvableAsset(assetID, counterparty string) {
	n.logger.Warn("could not resolve asset during decoding",
		zap.String("asset", assetID),
		zap.String("counterparty", counterparty),
	)
}

// Recorder collects notifications in memory.
type Recorder struct {
	mu       sync.Mutex
	statuses []MigrationStatus
	errors   []string
	assets   []string
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) MigrationStatus(status MigrationStatus) {
	r.mu.Lock()
	r.statuses = append(r.statuses, status)
	r.mu.Unlock()
}

func (r *Recorder) Error(message string) {
	r.mu.Lock()
	r.errors = append(r.errors, message)
	r.mu.Unlock()
}

func (r *Recorder) UnresolvableAsset(assetID, _ string) {
	r.mu.Lock()
	r.assets = append(r.assets, assetID)
	r.mu.Unlock()
}

func (r *Recorder) Statuses() []MigrationStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]MigrationStatus, len(r.statuses))
	copy(out, r.statuses)
	return out
}

func (r *Recorder) Errors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.errors))
	copy(out, r.errors)
	return out
}

func (r *Recorder) UnresolvableAssets() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.assets))
	copy(out, r.assets)
	return out
}
