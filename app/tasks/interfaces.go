package tasks

// TaskSchedulerInterface defines the interface for task scheduling
// operations. Used by the main application and the API to manage background
// processing.
// Example usage:
//
//	scheduler := NewScheduler(configCache, eventRepo, httpClient, builder, binner, enricher, snapshot)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewPublishCalendarTask(...))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	EnqueuePublish() error
	EnqueueFetch(sourceName string) error
}
