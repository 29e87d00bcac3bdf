// Package jobs は生成ジョブのプロセス内レジストリを提供します。
// ジョブ状態は永続化されず、プロセス再起動で失われます。
package jobs

import "time"

// Status はジョブの実行状態を表します。
// 遷移は processing → done または processing → error の一方向のみです。
type Status string

const (
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

// Job は生成ジョブの現在状態を表します。
type Job struct {
	ID        string    `json:"id"`
	Status    Status    `json:"status"`
	Total     int       `json:"total"`
	Current   int       `json:"current"`
	Error     string    `json:"error,omitempty"`
	ZipKey    string    `json:"zipKey,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Terminal はジョブが終端状態に到達したかを返します。
func (j *Job) Terminal() bool {
	return j.Status == StatusDone || j.Status == StatusError
}
