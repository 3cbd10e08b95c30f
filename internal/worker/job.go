package worker

import (
	"errors"
	"fmt"
	"strings"
)

// Job はワーカーが一度だけ実行する、引数も戻り値も持たない処理
type Job func()

var (
	// ErrPoolClosed はシャットダウン開始後に投入されたことを表す
	ErrPoolClosed = errors.New("worker: pool is closed")
	// ErrNilJob は nil のジョブが投入されたことを表す
	ErrNilJob = errors.New("worker: nil job")
	// ErrInvalidSize はワーカー数が 1 未満であることを表す
	ErrInvalidSize = errors.New("worker: pool size must be at least 1")
)

// FaultPolicy はジョブが panic したときのワーカーの振る舞い
type FaultPolicy int

const (
	// FaultRecover は panic を回収し、ワーカーは処理を続ける
	FaultRecover FaultPolicy = iota
	// FaultRetire は panic を回収した後、そのワーカーを終了させる
	FaultRetire
)

func (f FaultPolicy) String() string {
	switch f {
	case FaultRecover:
		return "recover"
	case FaultRetire:
		return "retire"
	default:
		return "unknown"
	}
}

// ParseFaultPolicy は設定文字列を FaultPolicy に変換する
func ParseFaultPolicy(s string) (FaultPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "recover":
		return FaultRecover, nil
	case "retire":
		return FaultRetire, nil
	default:
		return FaultRecover, fmt.Errorf("unknown fault policy: %q", s)
	}
}
