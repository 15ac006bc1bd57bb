package services

import (
	"fmt"
	"log"
	"mars-rover/config"
	"mars-rover/models"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// OpenDatabase - 설정에 따라 SQLite 또는 MySQL 연결 후 마이그레이션
func OpenDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "mysql":
		if cfg.MySQLHost == "" || cfg.MySQLUser == "" || cfg.MySQLPassword == "" || cfg.MySQLDatabase == "" {
			return nil, fmt.Errorf("MySQL 환경 변수가 모두 설정되지 않았습니다: MYSQL_HOST, MYSQL_USER, MYSQL_PASSWORD, MYSQL_DATABASE")
		}
		port := cfg.MySQLPort
		if port == 0 {
			port = 3306 // 기본 포트
		}
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			cfg.MySQLUser, cfg.MySQLPassword, cfg.MySQLHost, port, cfg.MySQLDatabase)
		dialector = mysql.Open(dsn)
		log.Printf("📡 연결 정보: %s@%s:%d/%s", cfg.MySQLUser, cfg.MySQLHost, port, cfg.MySQLDatabase)
	default:
		dialector = sqlite.Open(cfg.SQLitePath)
		log.Printf("📡 SQLite 파일: %s", cfg.SQLitePath)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("DB 연결 실패: %w", err)
	}

	// AutoMigrate - 테이블 자동 생성
	if err := db.AutoMigrate(&models.RoverLog{}); err != nil {
		return nil, fmt.Errorf("마이그레이션 실패: %w", err)
	}

	log.Printf("✅ %s 연결 및 마이그레이션 완료", cfg.Driver)
	return db, nil
}

// CloseDatabase - 내부 sql.DB 연결 종료
func CloseDatabase(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ========================================
// GormLogStore - RoverLog 저장소
// ========================================

// GormLogStore - gorm 기반 LogStore 구현
type GormLogStore struct {
	db *gorm.DB
}

// NewGormLogStore creates a store on an opened database
func NewGormLogStore(db *gorm.DB) *GormLogStore {
	return &GormLogStore{db: db}
}

// SaveBatch - 로그 일괄 저장
func (s *GormLogStore) SaveBatch(logs []models.RoverLog) error {
	return s.db.CreateInBatches(logs, 100).Error
}

// Recent - 최근 로그 조회
func (s *GormLogStore) Recent(roverID string, limit int) ([]models.RoverLog, error) {
	var logs []models.RoverLog
	err := s.db.Where("rover_id = ?", roverID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

// ByTimeRange - 시간 범위로 로그 조회
func (s *GormLogStore) ByTimeRange(roverID string, start, end time.Time, limit int) ([]models.RoverLog, error) {
	var logs []models.RoverLog
	query := s.db.Where("rover_id = ? AND created_at BETWEEN ? AND ?", roverID, start, end)

	if limit > 0 {
		query = query.Limit(limit)
	}

	err := query.Order("created_at DESC").Find(&logs).Error
	return logs, err
}

// ByEventType - 이벤트 타입별 로그 조회
func (s *GormLogStore) ByEventType(roverID string, eventType string, limit int) ([]models.RoverLog, error) {
	var logs []models.RoverLog
	err := s.db.Where("rover_id = ? AND event_type = ?", roverID, eventType).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

// Stats - since 이후 로그 통계
func (s *GormLogStore) Stats(roverID string, since time.Time) (models.LogStats, error) {
	stats := models.LogStats{
		EventCounts: make(map[string]int64),
		Since:       since,
	}

	err := s.db.Model(&models.RoverLog{}).
		Where("rover_id = ? AND created_at >= ?", roverID, since).
		Count(&stats.TotalLogs).Error
	if err != nil {
		return stats, err
	}

	// 이벤트 타입별 카운트
	var eventCounts []struct {
		EventType string
		Count     int64
	}
	err = s.db.Model(&models.RoverLog{}).
		Select("event_type, COUNT(*) as count").
		Where("rover_id = ? AND created_at >= ?", roverID, since).
		Group("event_type").
		Scan(&eventCounts).Error
	if err != nil {
		return stats, err
	}

	for _, ec := range eventCounts {
		stats.EventCounts[ec.EventType] = ec.Count
	}
	return stats, nil
}
