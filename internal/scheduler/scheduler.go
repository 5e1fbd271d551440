package scheduler

import (
	"sync"
	"time"
)

// Cancel 取消已调度的任务；可重复调用
type Cancel func()

// Scheduler 周期/一次性任务调度
type Scheduler interface {
	// Every 每隔 interval 调用一次 fn，直到取消
	Every(interval time.Duration, fn func()) Cancel
	// After delay 之后调用一次 fn
	After(delay time.Duration, fn func()) Cancel
}

// TickerScheduler 基于 time.Ticker / time.AfterFunc 的实现
type TickerScheduler struct{}

func NewTickerScheduler() *TickerScheduler {
	return &TickerScheduler{}
}

func (s *TickerScheduler) Every(interval time.Duration, fn func()) Cancel {
	ticker := time.NewTicker(interval)
	stop := make(chan struct{})

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				// ticker 与 stop 同时就绪时优先退出
				select {
				case <-stop:
					return
				default:
				}
				fn()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(stop) })
	}
}

func (s *TickerScheduler) After(delay time.Duration, fn func()) Cancel {
	timer := time.AfterFunc(delay, fn)
	return func() { timer.Stop() }
}
