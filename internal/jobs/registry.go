package jobs

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry はジョブ状態をメモリ上に保持します。
// 並行アクセスに対して安全です。各ジョブのフィールドを書き換えるのは
// そのジョブを所有するオーケストレーターのみです。
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*Job
	now  func() time.Time
}

// NewRegistry は Registry を作成します。
func NewRegistry() *Registry {
	return &Registry{
		jobs: make(map[string]*Job),
		now:  time.Now,
	}
}

// Create は processing 状態の新規ジョブを登録して返します。
func (r *Registry) Create(total int) *Job {
	now := r.now().UTC()
	job := &Job{
		ID:        uuid.NewString(),
		Status:    StatusProcessing,
		Total:     total,
		Current:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}

	r.mu.Lock()
	r.jobs[job.ID] = job
	r.mu.Unlock()

	return cloneJob(job)
}

// Get はジョブのスナップショットを返します。
func (r *Registry) Get(id string) (*Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, false
	}
	return cloneJob(job), true
}

// Update は mutate を適用してジョブを更新し、更新後のスナップショットを返します。
func (r *Registry) Update(id string, mutate func(*Job)) (*Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, false
	}
	mutate(job)
	job.UpdatedAt = r.now().UTC()
	return cloneJob(job), true
}

// Remove はジョブを削除します。存在しないIDは無視します。
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.jobs, id)
	r.mu.Unlock()
}

// Sweep は最終更新から ttl 以上経過したジョブを削除し、そのスナップショットを返します。
// ダウンロードされないまま放置されたジョブと成果物の回収に使用します。
func (r *Registry) Sweep(ttl time.Duration) []*Job {
	cutoff := r.now().UTC().Add(-ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	var expired []*Job
	for id, job := range r.jobs {
		if job.UpdatedAt.Before(cutoff) {
			expired = append(expired, cloneJob(job))
			delete(r.jobs, id)
		}
	}
	return expired
}

// Len は登録中のジョブ数を返します。
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

func cloneJob(job *Job) *Job {
	copied := *job
	return &copied
}
