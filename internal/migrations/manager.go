package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"ledgerscope/internal/notify"
	"ledgerscope/internal/userdb"
)

// lastDataMigrationSetting stores the highest migration version that has
// fully completed.
const lastDataMigrationSetting = "last_data_migration"

// MigrationContext is what a migration function gets to work with. All
// storage writes go through Tx so the step commits atomically or not at
// all.
type MigrationContext struct {
	Tx       *sql.Tx
	DB       *userdb.DB
	Progress *ProgressHandler
	Notifier notify.Notifier
	Logger   *zap.Logger
}

// MigrationFunc is the body of one migration step.
type MigrationFunc func(ctx context.Context, m *MigrationContext) error

// MigrationRecord pairs a version number with its migration function.
// Versions are strictly increasing with no duplicates.
type MigrationRecord struct {
	Version int
	Func    MigrationFunc
}

// Manager runs unapplied data migrations in version order. It holds no
// internal locking; callers serialize invocations (a single startup gate
// in practice).
type Manager struct {
	db         *userdb.DB
	notifier   notify.Notifier
	logger     *zap.Logger
	migrations []MigrationRecord
}

func NewManager(db *userdb.DB, notifier notify.Notifier, logger *zap.Logger, migrations []MigrationRecord) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		db:         db,
		notifier:   notifier,
		logger:     logger,
		migrations: migrations,
	}
}

// MaybeMigrateData applies every migration newer than the persisted
// marker, in ascending version order. A step failure is notified once and
// halts the run without advancing the marker, so the next invocation
// retries the same step. A fresh database runs nothing and starts out
// marked at the highest registered version.
func (m *Manager) MaybeMigrateData(ctx context.Context) {
	value, present, err := m.db.GetSetting(ctx, lastDataMigrationSetting)
	if err != nil {
		m.logger.Error("failed to read data migration marker", zap.Error(err))
		return
	}

	if !present {
		// A new database starts out already migrated; it has no history
		// to replay.
		target := m.highestVersion()
		if err := m.db.SetSetting(ctx, lastDataMigrationSetting, strconv.Itoa(target)); err != nil {
			m.logger.Error("failed to initialize data migration marker", zap.Error(err))
		}
		return
	}

	last, err := strconv.Atoi(value)
	if err != nil {
		m.logger.Error("corrupt data migration marker", zap.String("value", value), zap.Error(err))
		return
	}

	pending := m.pendingAfter(last)
	if len(pending) == 0 {
		return
	}

	startVersion := pending[0].Version
	targetVersion := m.highestVersion()

	for _, record := range pending {
		progress := newProgressHandler(m.notifier, startVersion, targetVersion, record.Version)
		progress.started()

		err := m.db.WithTx(ctx, func(tx *sql.Tx) error {
			return record.Func(ctx, &MigrationContext{
				Tx:       tx,
				DB:       m.db,
				Progress: progress,
				Notifier: m.notifier,
				Logger:   m.logger,
			})
		})
		if err != nil {
			m.logger.Error("data migration failed",
				zap.Int("version", record.Version),
				zap.Error(err),
			)
			if m.notifier != nil {
				m.notifier.Error(fmt.Sprintf(
					"Failed to run soft data migration to version %d due to %s",
					record.Version, err.Error(),
				))
			}
			return
		}

		if err := m.db.SetSetting(ctx, lastDataMigrationSetting, strconv.Itoa(record.Version)); err != nil {
			m.logger.Error("failed to persist data migration marker",
				zap.Int("version", record.Version),
				zap.Error(err),
			)
			return
		}

		m.logger.Info("data migration applied", zap.Int("version", record.Version))
	}
}

func (m *Manager) pendingAfter(last int) []MigrationRecord {
	pending := make([]MigrationRecord, 0, len(m.migrations))
	for _, record := range m.migrations {
		if record.Version > last {
			pending = append(pending, record)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].Version < pending[j].Version
	})
	return pending
}

func (m *Manager) highestVersion() int {
	highest := 0
	for _, record := range m.migrations {
		if record.Version > highest {
			highest = record.Version
		}
	}
	return highest
}
