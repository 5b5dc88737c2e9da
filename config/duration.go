package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration 配置文件中的时间间隔
//
// JSON 中写作 "2s"、"500ms" 这样的字符串；整数按秒解释，
// 与后端配置里的 *_secs 字段一致。输出总是字符串形式。
type Duration time.Duration

// UnmarshalJSON 解析字符串或整数秒
func (d *Duration) UnmarshalJSON(data []byte) error {
	var secs int64
	if err := json.Unmarshal(data, &secs); err == nil {
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"2s\" or whole seconds, got %s", data)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalJSON 输出字符串形式
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// Duration 返回 time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}
