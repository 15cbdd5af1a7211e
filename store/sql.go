package store

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/va2ai/ai-agent-orchestration-platform/types"
)

func unixOrZero(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

// sessionRow, versionRow, reviewRow, iterationRow, and reportRow are the
// gorm-mapped tables backing SQLStore. Nested structures (participants,
// issues, config) are stored as JSON text columns rather than normalized
// tables — the teacher's own gorm models (llm/*.go) mix relational
// columns with JSON blobs for exactly this kind of nested,
// query-opaque data.
type sessionRow struct {
	SessionID        string `gorm:"primaryKey"`
	Title            string
	Goal             string
	DocumentType     string
	ModeratorFocus   string
	Status           string
	CurrentIteration int
	CreatedAt        int64
	EndedAt          int64
	FinalVersion     int
	ConvergenceReason string
	StoppedBy        string
	ContinuedFromIteration int
	ParticipantsJSON string
	ConfigJSON       string
	TokenCountsJSON  string
}

type versionRow struct {
	SessionID string `gorm:"primaryKey"`
	Version   int    `gorm:"primaryKey"`
	DataJSON  string
}

type reviewsRow struct {
	SessionID string `gorm:"primaryKey"`
	Version   int    `gorm:"primaryKey"`
	DataJSON  string
}

type iterationRow struct {
	SessionID string `gorm:"primaryKey;autoIncrement:false"`
	Seq       int    `gorm:"primaryKey"`
	DataJSON  string
}

type reportRow struct {
	SessionID string `gorm:"primaryKey"`
	DataJSON  string
}

// SQLStore is a durable Store backed by gorm, wiring the teacher's
// gorm.io/gorm + gorm.io/driver/sqlite direct dependencies into a
// concrete durable backend alongside MemoryStore and FileStore.
type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore opens (creating if necessary) a SQLite database at path and
// migrates its schema.
func NewSQLStore(path string) (*SQLStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, types.NewError(types.ErrStoreWriteFailure, "open sqlite database").WithCause(err)
	}
	if err := db.AutoMigrate(&sessionRow{}, &versionRow{}, &reviewsRow{}, &iterationRow{}, &reportRow{}); err != nil {
		return nil, types.NewError(types.ErrStoreWriteFailure, "migrate schema").WithCause(err)
	}
	return &SQLStore{db: db}, nil
}

func toSessionRow(s types.Session) (sessionRow, error) {
	participantsJSON, err := json.Marshal(s.Participants)
	if err != nil {
		return sessionRow{}, err
	}
	configJSON, err := json.Marshal(s.Config)
	if err != nil {
		return sessionRow{}, err
	}
	tokenJSON, err := json.Marshal(s.TokenCounts)
	if err != nil {
		return sessionRow{}, err
	}
	row := sessionRow{
		SessionID:              s.SessionID,
		Title:                  s.Title,
		Goal:                   s.Goal,
		DocumentType:           s.DocumentType,
		ModeratorFocus:         s.ModeratorFocus,
		Status:                 string(s.Status),
		CurrentIteration:       s.CurrentIteration,
		CreatedAt:              s.CreatedAt.Unix(),
		FinalVersion:           s.FinalVersion,
		ConvergenceReason:      s.ConvergenceReason,
		StoppedBy:              string(s.StoppedBy),
		ContinuedFromIteration: s.ContinuedFromIteration,
		ParticipantsJSON:       string(participantsJSON),
		ConfigJSON:             string(configJSON),
		TokenCountsJSON:        string(tokenJSON),
	}
	if !s.EndedAt.IsZero() {
		row.EndedAt = s.EndedAt.Unix()
	}
	return row, nil
}

func fromSessionRow(row sessionRow) (types.Session, error) {
	var s types.Session
	s.SessionID = row.SessionID
	s.Title = row.Title
	s.Goal = row.Goal
	s.DocumentType = row.DocumentType
	s.ModeratorFocus = row.ModeratorFocus
	s.Status = types.Status(row.Status)
	s.CurrentIteration = row.CurrentIteration
	s.CreatedAt = unixOrZero(row.CreatedAt)
	s.EndedAt = unixOrZero(row.EndedAt)
	s.FinalVersion = row.FinalVersion
	s.ConvergenceReason = row.ConvergenceReason
	s.StoppedBy = types.StoppedBy(row.StoppedBy)
	s.ContinuedFromIteration = row.ContinuedFromIteration
	if err := json.Unmarshal([]byte(row.ParticipantsJSON), &s.Participants); err != nil {
		return types.Session{}, err
	}
	if err := json.Unmarshal([]byte(row.ConfigJSON), &s.Config); err != nil {
		return types.Session{}, err
	}
	if row.TokenCountsJSON != "" {
		if err := json.Unmarshal([]byte(row.TokenCountsJSON), &s.TokenCounts); err != nil {
			return types.Session{}, err
		}
	}
	return s, nil
}

func (st *SQLStore) CreateSession(_ context.Context, session types.Session) error {
	row, err := toSessionRow(session)
	if err != nil {
		return types.NewError(types.ErrInternal, "marshal session").WithCause(err)
	}
	if err := st.db.Create(&row).Error; err != nil {
		return types.NewError(types.ErrStoreWriteFailure, "insert session").WithCause(err)
	}
	return nil
}

func (st *SQLStore) UpdateSessionStatus(_ context.Context, sessionID string, status types.Status) error {
	res := st.db.Model(&sessionRow{}).Where("session_id = ?", sessionID).Update("status", string(status))
	if res.Error != nil {
		return types.NewError(types.ErrStoreWriteFailure, "update status").WithCause(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (st *SQLStore) SaveSession(_ context.Context, session types.Session) error {
	row, err := toSessionRow(session)
	if err != nil {
		return types.NewError(types.ErrInternal, "marshal session").WithCause(err)
	}
	if err := st.db.Save(&row).Error; err != nil {
		return types.NewError(types.ErrStoreWriteFailure, "save session").WithCause(err)
	}
	return nil
}

func (st *SQLStore) LoadSession(_ context.Context, sessionID string) (types.Session, error) {
	var row sessionRow
	if err := st.db.Where("session_id = ?", sessionID).First(&row).Error; err != nil {
		return types.Session{}, ErrSessionNotFound
	}
	return fromSessionRow(row)
}

func (st *SQLStore) ListSessions(_ context.Context) ([]types.Session, error) {
	var rows []sessionRow
	if err := st.db.Order("created_at asc").Find(&rows).Error; err != nil {
		return nil, types.NewError(types.ErrInternal, "list sessions").WithCause(err)
	}
	out := make([]types.Session, 0, len(rows))
	for _, r := range rows {
		s, err := fromSessionRow(r)
		if err != nil {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (st *SQLStore) DeleteSession(_ context.Context, sessionID string) error {
	st.db.Where("session_id = ?", sessionID).Delete(&sessionRow{})
	st.db.Where("session_id = ?", sessionID).Delete(&versionRow{})
	st.db.Where("session_id = ?", sessionID).Delete(&reviewsRow{})
	st.db.Where("session_id = ?", sessionID).Delete(&iterationRow{})
	st.db.Where("session_id = ?", sessionID).Delete(&reportRow{})
	return nil
}

func (st *SQLStore) SaveVersion(_ context.Context, sessionID string, version types.DocumentVersion) error {
	var max int64
	st.db.Model(&versionRow{}).Where("session_id = ?", sessionID).Select("COALESCE(MAX(version), 0)").Scan(&max)
	if int(max)+1 != version.Version {
		return ErrVersionConflict
	}
	data, err := json.Marshal(version)
	if err != nil {
		return types.NewError(types.ErrInternal, "marshal version").WithCause(err)
	}
	row := versionRow{SessionID: sessionID, Version: version.Version, DataJSON: string(data)}
	if err := st.db.Create(&row).Error; err != nil {
		return types.NewError(types.ErrStoreWriteFailure, "insert version").WithCause(err)
	}
	return nil
}

func (st *SQLStore) LoadVersion(_ context.Context, sessionID string, version int) (types.DocumentVersion, error) {
	var row versionRow
	if err := st.db.Where("session_id = ? AND version = ?", sessionID, version).First(&row).Error; err != nil {
		return types.DocumentVersion{}, ErrVersionNotFound
	}
	var v types.DocumentVersion
	if err := json.Unmarshal([]byte(row.DataJSON), &v); err != nil {
		return types.DocumentVersion{}, types.NewError(types.ErrInternal, "unmarshal version").WithCause(err)
	}
	return v, nil
}

func (st *SQLStore) MaxVersion(_ context.Context, sessionID string) (int, error) {
	var max int64
	st.db.Model(&versionRow{}).Where("session_id = ?", sessionID).Select("COALESCE(MAX(version), 0)").Scan(&max)
	return int(max), nil
}

func (st *SQLStore) SaveReviews(_ context.Context, sessionID string, version int, reviews []types.Review) error {
	data, err := json.Marshal(reviews)
	if err != nil {
		return types.NewError(types.ErrInternal, "marshal reviews").WithCause(err)
	}
	row := reviewsRow{SessionID: sessionID, Version: version, DataJSON: string(data)}
	if err := st.db.Save(&row).Error; err != nil {
		return types.NewError(types.ErrStoreWriteFailure, "save reviews").WithCause(err)
	}
	return nil
}

func (st *SQLStore) LoadReviews(_ context.Context, sessionID string, version int) ([]types.Review, error) {
	var row reviewsRow
	if err := st.db.Where("session_id = ? AND version = ?", sessionID, version).First(&row).Error; err != nil {
		return nil, nil
	}
	var reviews []types.Review
	if err := json.Unmarshal([]byte(row.DataJSON), &reviews); err != nil {
		return nil, types.NewError(types.ErrInternal, "unmarshal reviews").WithCause(err)
	}
	return reviews, nil
}

func (st *SQLStore) SaveIteration(_ context.Context, sessionID string, iteration types.IterationRecord) error {
	var count int64
	st.db.Model(&iterationRow{}).Where("session_id = ?", sessionID).Count(&count)
	data, err := json.Marshal(iteration)
	if err != nil {
		return types.NewError(types.ErrInternal, "marshal iteration").WithCause(err)
	}
	row := iterationRow{SessionID: sessionID, Seq: int(count) + 1, DataJSON: string(data)}
	if err := st.db.Create(&row).Error; err != nil {
		return types.NewError(types.ErrStoreWriteFailure, "insert iteration").WithCause(err)
	}
	return nil
}

func (st *SQLStore) LoadIterations(_ context.Context, sessionID string) ([]types.IterationRecord, error) {
	var rows []iterationRow
	if err := st.db.Where("session_id = ?", sessionID).Order("seq asc").Find(&rows).Error; err != nil {
		return nil, types.NewError(types.ErrInternal, "list iterations").WithCause(err)
	}
	out := make([]types.IterationRecord, 0, len(rows))
	for _, r := range rows {
		var it types.IterationRecord
		if err := json.Unmarshal([]byte(r.DataJSON), &it); err == nil {
			out = append(out, it)
		}
	}
	return out, nil
}

func (st *SQLStore) SaveReport(_ context.Context, sessionID string, report types.ConvergenceReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return types.NewError(types.ErrInternal, "marshal report").WithCause(err)
	}
	row := reportRow{SessionID: sessionID, DataJSON: string(data)}
	if err := st.db.Save(&row).Error; err != nil {
		return types.NewError(types.ErrStoreWriteFailure, "save report").WithCause(err)
	}
	return nil
}

func (st *SQLStore) LoadReport(_ context.Context, sessionID string) (types.ConvergenceReport, error) {
	var row reportRow
	if err := st.db.Where("session_id = ?", sessionID).First(&row).Error; err != nil {
		return types.ConvergenceReport{}, ErrReportNotFound
	}
	var report types.ConvergenceReport
	if err := json.Unmarshal([]byte(row.DataJSON), &report); err != nil {
		return types.ConvergenceReport{}, types.NewError(types.ErrInternal, "unmarshal report").WithCause(err)
	}
	return report, nil
}
