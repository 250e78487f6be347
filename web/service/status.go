package service

import (
	"context"

	"github.com/dicoevent/dicoevent/config"
	"github.com/dicoevent/dicoevent/logger"
	"github.com/dicoevent/dicoevent/web/entity"
	"github.com/dicoevent/dicoevent/web/permission"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

// statsSource is implemented by dispatchers that count their tasks.
type statsSource interface {
	Stats() (enqueued, delivered, failed int64)
}

type StatusService struct {
	*Deps
}

func NewStatusService(deps *Deps) *StatusService {
	return &StatusService{Deps: deps}
}

// GetStatus reports datastore and cache health plus host statistics.
func (s *StatusService) GetStatus(ctx context.Context, actor *permission.Actor) (*entity.Status, error) {
	if err := enter(permission.AdminOrSuperUser, actor, "read status"); err != nil {
		return nil, err
	}
	status := &entity.Status{
		Version:  config.GetVersion(),
		Database: "ok",
		Cache:    "ok",
	}

	db, cancel := s.withDB(ctx)
	defer cancel()
	if sqlDB, err := db.DB(); err != nil {
		status.Database = err.Error()
	} else if err := sqlDB.PingContext(ctx); err != nil {
		status.Database = err.Error()
	}
	if err := s.Cache.Ping(ctx); err != nil {
		status.Cache = err.Error()
	}

	if uptime, err := host.UptimeWithContext(ctx); err == nil {
		status.Uptime = uptime
	} else {
		logger.Warning("get uptime failed: ", err)
	}
	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		status.CPU = percents[0]
	} else if err != nil {
		logger.Warning("get cpu percent failed: ", err)
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		status.MemUsed = vm.Used
		status.MemTotal = vm.Total
	} else {
		logger.Warning("get virtual memory failed: ", err)
	}

	if src, ok := s.Dispatcher.(statsSource); ok {
		enqueued, _, failed := src.Stats()
		status.Mail = entity.MailStats{Enqueued: enqueued, Failed: failed}
	}
	return status, nil
}
