package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/clinic-appointments/internal/appointments"
	appconfig "github.com/wolfman30/clinic-appointments/internal/config"
	"github.com/wolfman30/clinic-appointments/internal/doctors"
	"github.com/wolfman30/clinic-appointments/internal/patients"
	"github.com/wolfman30/clinic-appointments/pkg/logging"
)

// Storage is the persistence wiring shared by the API process.
type Storage struct {
	Appointments appointments.Store
	Doctors      doctors.Catalog
	Patients     *patients.Registry

	// Audit is nil in memory mode.
	Audit *appointments.StatusAudit

	sqlDB *sql.DB
}

// Close releases the database/sql handle opened for the audit trail.
func (s *Storage) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// BuildStorage selects Postgres-backed stores when pool is set and in-memory
// stores otherwise. A non-nil redisClient caches the doctor catalog and, in
// memory mode, issues patient sequence numbers.
func BuildStorage(ctx context.Context, cfg *appconfig.Config, pool *pgxpool.Pool, redisClient *redis.Client, logger *logging.Logger) (*Storage, error) {
	if cfg == nil {
		return nil, errors.New("bootstrap: config required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	if pool == nil {
		if !cfg.UseMemoryStore {
			return nil, errors.New("bootstrap: postgres pool required unless USE_MEMORY_STORE is set")
		}
		return buildMemoryStorage(cfg, redisClient, logger)
	}

	var catalog doctors.Catalog = doctors.NewPostgresCatalog(pool)
	if redisClient != nil {
		catalog = doctors.NewCachedCatalog(catalog, redisClient, cfg.DoctorCacheTTL, logger)
	}
	registry := patients.NewRegistry(
		patients.NewPostgresRepository(pool),
		patients.NewPostgresSequence(pool),
		cfg.PatientIDPrefix,
		logger,
	).WithLocation(cfg.Location())

	sqlDB := stdlib.OpenDBFromPool(pool)
	logger.Info("storage ready", "backend", "postgres", "doctor_cache", redisClient != nil)
	return &Storage{
		Appointments: appointments.NewPostgresStore(pool),
		Doctors:      catalog,
		Patients:     registry,
		Audit:        appointments.NewStatusAudit(sqlDB),
		sqlDB:        sqlDB,
	}, nil
}

func buildMemoryStorage(cfg *appconfig.Config, redisClient *redis.Client, logger *logging.Logger) (*Storage, error) {
	catalog, err := doctors.ParseStaticCatalog(cfg.DoctorsJSON)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: DOCTORS_JSON: %w", err)
	}

	var seq patients.Sequence = patients.NewMemorySequence()
	if redisClient != nil {
		seq = patients.NewRedisSequence(redisClient)
	}
	registry := patients.NewRegistry(patients.NewMemoryRepository(), seq, cfg.PatientIDPrefix, logger).
		WithLocation(cfg.Location())

	logger.Warn("using in-memory storage; bookings are lost on restart", "redis_sequence", redisClient != nil)
	return &Storage{
		Appointments: appointments.NewMemoryStore(),
		Doctors:      catalog,
		Patients:     registry,
	}, nil
}

// Wire attaches the storage-backed collaborators to svc.
func (s *Storage) Wire(svc *appointments.Service) *appointments.Service {
	svc.WithPatientRegistry(s.Patients).WithDoctors(s.Doctors)
	if s.Audit != nil {
		svc.WithAudit(s.Audit)
	}
	return svc
}
