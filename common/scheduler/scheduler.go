package scheduler

import (
	"fmt"
	"sync"

	"blackcnote/common/logger"

	"github.com/go-co-op/gocron/v2"
)

// Manager 全局任务调度器
var Manager = &manager{jobs: make(map[string]gocron.Job)}

type manager struct {
	mu        sync.Mutex
	scheduler gocron.Scheduler
	jobs      map[string]gocron.Job
}

func (m *manager) ensure() error {
	if m.scheduler != nil {
		return nil
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	m.scheduler = s
	s.Start()
	return nil
}

// AddJob 以唯一名称注册任务；同名任务会被替换。任务以单例模式运行，上一轮未结束时跳过本轮
func (m *manager) AddJob(name string, definition gocron.JobDefinition, task gocron.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensure(); err != nil {
		logger.SysError("failed to create scheduler: " + err.Error())
		return err
	}

	if old, ok := m.jobs[name]; ok {
		_ = m.scheduler.RemoveJob(old.ID())
	}

	job, err := m.scheduler.NewJob(definition, task,
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		logger.SysError(fmt.Sprintf("failed to add job %s: %s", name, err.Error()))
		return err
	}
	m.jobs[name] = job
	logger.SysLog("scheduled job: " + name)
	return nil
}

func (m *manager) Jobs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.jobs))
	for name := range m.jobs {
		names = append(names, name)
	}
	return names
}

func (m *manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.scheduler == nil {
		return
	}
	if err := m.scheduler.Shutdown(); err != nil {
		logger.SysError("failed to shutdown scheduler: " + err.Error())
	}
	m.scheduler = nil
	m.jobs = make(map[string]gocron.Job)
}
