package api

import (
	"github.com/lameiro/event-comb/app/database"
	"github.com/lameiro/event-comb/app/event"
	"github.com/lameiro/event-comb/app/sources"
	"github.com/lameiro/event-comb/app/tasks"
)

type Handler struct {
	eventRepo   database.EventRepository
	configCache *sources.ConfigCache
	snapshot    *event.Snapshot
	scheduler   tasks.TaskSchedulerInterface
}
