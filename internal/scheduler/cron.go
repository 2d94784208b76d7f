// Package scheduler 提供后台定时任务管理。
// 服务端用它周期性地执行历史记录保留策略并刷新历史指标。
package scheduler

import (
	"fmt"
	"sort"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CronManager 管理按名称注册的定时任务
type CronManager struct {
	cron    *cron.Cron
	logger  *logrus.Logger
	mu      sync.Mutex
	entries map[string]cron.EntryID // 任务名 -> cronEntryID
	specs   map[string]string       // 任务名 -> 表达式
}

// NewCronManager 创建一个新的 CronManager。
// 表达式使用标准 5 段格式，也支持 @every 1h、@daily 等描述符。
func NewCronManager(logger *logrus.Logger) *CronManager {
	return &CronManager{
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.DefaultLogger),
			cron.SkipIfStillRunning(cron.DefaultLogger),
		)),
		logger:  logger,
		entries: make(map[string]cron.EntryID),
		specs:   make(map[string]string),
	}
}

// Start 启动 Cron 调度器
func (cm *CronManager) Start() {
	cm.cron.Start()
	cm.logger.WithField("jobs", len(cm.Jobs())).Info("Cron manager started")
}

// AddJob 添加或替换一个定时任务。
// spec 为空时只移除同名旧任务。
func (cm *CronManager) AddJob(name, spec string, job func()) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if entryID, ok := cm.entries[name]; ok {
		cm.cron.Remove(entryID)
		delete(cm.entries, name)
		delete(cm.specs, name)
	}
	if spec == "" {
		return nil
	}

	entryID, err := cm.cron.AddFunc(spec, func() {
		cm.logger.WithFields(logrus.Fields{
			"job":  name,
			"cron": spec,
		}).Debug("Running cron job")
		job()
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", spec, name, err)
	}

	cm.entries[name] = entryID
	cm.specs[name] = spec
	return nil
}

// RemoveJob 移除定时任务
func (cm *CronManager) RemoveJob(name string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if entryID, ok := cm.entries[name]; ok {
		cm.cron.Remove(entryID)
		delete(cm.entries, name)
		delete(cm.specs, name)
	}
}

// Jobs 返回已注册的任务名，按名称排序
func (cm *CronManager) Jobs() []string {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	names := make([]string, 0, len(cm.entries))
	for name := range cm.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Spec 返回任务的调度表达式
func (cm *CronManager) Spec(name string) (string, bool) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	spec, ok := cm.specs[name]
	return spec, ok
}

// Stop 停止 Cron 调度器，等待正在执行的任务结束
func (cm *CronManager) Stop() {
	<-cm.cron.Stop().Done()
	cm.logger.Info("Cron manager stopped")
}
