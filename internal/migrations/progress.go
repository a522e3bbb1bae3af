package migrations

import (
	"ledgerscope/internal/notify"
)

// ProgressHandler is bound to one migration within one run. The migration
// function declares its step count and reports each step; every report is
// emitted as a data_migration_status notification.
type ProgressHandler struct {
	notifier      notify.Notifier
	startVersion  int
	targetVersion int
	version       int
	totalSteps    int
	currentStep   int
}

func newProgressHandler(notifier notify.Notifier, startVersion, targetVersion, version int) *ProgressHandler {
	return &ProgressHandler{
		notifier:      notifier,
		startVersion:  startVersion,
		targetVersion: targetVersion,
		version:       version,
	}
}

// started announces the migration before its function runs, with zero
// steps declared yet.
func (p *ProgressHandler) started() {
	p.emit("")
}

// SetTotalSteps declares how many steps the migration will report.
func (p *ProgressHandler) SetTotalSteps(n int) {
	p.totalSteps = n
	p.currentStep = 0
}

// NewStep advances the step counter and emits a progress notification.
func (p *ProgressHandler) NewStep(description string) {
	p.currentStep++
	p.emit(description)
}

func (p *ProgressHandler) emit(description string) {
	if p.notifier == nil {
		return
	}
	p.notifier.MigrationStatus(notify.MigrationStatus{
		StartVersion:  p.startVersion,
		TargetVersion: p.targetVersion,
		CurrentMigration: notify.MigrationStep{
			Version:     p.version,
			TotalSteps:  p.totalSteps,
			CurrentStep: p.currentStep,
			Description: description,
		},
	})
}
