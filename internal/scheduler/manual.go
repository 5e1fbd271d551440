package scheduler

import (
	"sync"
	"time"
)

// Manual 手动推进的虚拟时钟调度器，用于回放和测试
type Manual struct {
	mu    sync.Mutex
	now   time.Time
	seq   int
	tasks []*manualTask
}

type manualTask struct {
	seq      int
	next     time.Time
	interval time.Duration
	fn       func()
	done     bool
}

// NewManual 以 start 作为虚拟时间起点
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now 当前虚拟时间（可作为时钟注入）
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Every(interval time.Duration, fn func()) Cancel {
	return m.add(interval, interval, fn)
}

func (m *Manual) After(delay time.Duration, fn func()) Cancel {
	return m.add(delay, 0, fn)
}

func (m *Manual) add(delay, interval time.Duration, fn func()) Cancel {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	t := &manualTask{seq: m.seq, next: m.now.Add(delay), interval: interval, fn: fn}
	m.tasks = append(m.tasks, t)

	return func() {
		m.mu.Lock()
		t.done = true
		m.mu.Unlock()
	}
}

// Pending 未完成（未取消）的任务数
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tasks {
		if !t.done {
			n++
		}
	}
	return n
}

// Advance 推进虚拟时间，按到期顺序执行任务；回调在不持锁的情况下执行
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		t := m.nextDue(target)
		if t == nil {
			m.now = target
			m.compact()
			m.mu.Unlock()
			return
		}
		m.now = t.next
		if t.interval > 0 {
			t.next = t.next.Add(t.interval)
		} else {
			t.done = true
		}
		fn := t.fn
		m.mu.Unlock()

		fn()
	}
}

func (m *Manual) nextDue(target time.Time) *manualTask {
	var due *manualTask
	for _, t := range m.tasks {
		if t.done || t.next.After(target) {
			continue
		}
		if due == nil || t.next.Before(due.next) || (t.next.Equal(due.next) && t.seq < due.seq) {
			due = t
		}
	}
	return due
}

func (m *Manual) compact() {
	live := m.tasks[:0]
	for _, t := range m.tasks {
		if !t.done {
			live = append(live, t)
		}
	}
	m.tasks = live
}
