package main

import (
	"fmt"

	"github.com/liyander/secops-mcp/internal/config"
	"github.com/liyander/secops-mcp/internal/executor/manager"
	"github.com/liyander/secops-mcp/internal/pkg/logger"
)

// startWatcher 配置文件热更新，未使用配置文件时返回 nil
func startWatcher(mgr *manager.Manager, stdio bool) *config.ConfigWatcher {
	if rt.configFile == "" {
		return nil
	}

	watcher, err := config.NewConfigWatcher(rt.configFile, rt.cfg)
	if err != nil {
		logger.Warnf("Config hot reload disabled: %v", err)
		return nil
	}
	if rt.loader != nil {
		watcher.UseLoader(rt.loader)
	}
	watcher.AddCallback(reloadCallback(mgr, rt.logs, stdio))
	watcher.OnError(func(err error) {
		logger.LogError(err, "", map[string]interface{}{
			"component": "config_watcher",
			"file":      rt.configFile,
		})
	})

	if err := watcher.Start(); err != nil {
		logger.Warnf("Config hot reload disabled: %v", err)
		return nil
	}
	logger.LogSystemEvent("config", "watch", "Watching config file", logger.InfoLevel, map[string]interface{}{
		"file": rt.configFile,
	})
	return watcher
}

// reloadCallback 先替换工具目录再更新日志配置，日志更新失败时恢复旧目录
func reloadCallback(mgr *manager.Manager, logs *logger.LoggerManager, stdio bool) config.ConfigChangeCallback {
	return func(oldConfig, newConfig *config.Config) error {
		if err := mgr.ApplyConfig(newConfig); err != nil {
			return err
		}
		if logs == nil || newConfig.Log == nil {
			return nil
		}

		logCfg := *newConfig.Log
		if stdio {
			forceStderr(&logCfg)
		}
		if err := logs.UpdateConfig(&logCfg); err != nil {
			if oldConfig != nil {
				if rbErr := mgr.ApplyConfig(oldConfig); rbErr != nil {
					logger.Warnf("Failed to restore previous catalog: %v", rbErr)
				}
			}
			return fmt.Errorf("apply log config: %w", err)
		}
		return nil
	}
}

func stopWatcher(w *config.ConfigWatcher) {
	if w == nil {
		return
	}
	if err := w.Stop(); err != nil {
		logger.Warnf("Failed to stop config watcher: %v", err)
	}
}
