package subtitle

import (
	"errors"
	"math"
	"regexp"
	"testing"

	"github.com/z-wentao/scriptsync/pkg/models"
)

// TestFormatTimestamp 测试典型取值
func TestFormatTimestamp(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "00:00:00.000"},
		{1.2, "00:00:01.200"},
		{65.5, "00:01:05.500"},
		{3661.5, "01:01:01.500"},
		{59.9999, "00:00:59.999"},
		{59.9996, "00:00:59.999"},
		{59.9999996, "00:00:59.999"},
		{0.0009996, "00:00:00.000"},
		{3599.9999999, "00:59:59.999"},
		{0.1 + 0.2, "00:00:00.300"},
		{86399.999, "23:59:59.999"},
		{360000, "100:00:00.000"},
	}
	for _, c := range cases {
		got, err := FormatTimestamp(c.in)
		if err != nil {
			t.Fatalf("FormatTimestamp(%v): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("FormatTimestamp(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

// TestFormatSRTTimestamp 测试 SRT 逗号分隔
func TestFormatSRTTimestamp(t *testing.T) {
	got, err := FormatSRTTimestamp(65.5)
	if err != nil {
		t.Fatalf("FormatSRTTimestamp: %v", err)
	}
	if got != "00:01:05,500" {
		t.Fatalf("unexpected %q", got)
	}
}

// TestFormatTimestampInvalid 测试负数与非有限值被拒绝
func TestFormatTimestampInvalid(t *testing.T) {
	for _, in := range []float64{-0.001, -1, math.NaN(), math.Inf(1), math.Inf(-1), 1e13} {
		_, err := FormatTimestamp(in)
		if !errors.Is(err, models.ErrInvalidTimestamp) {
			t.Fatalf("FormatTimestamp(%v): expect ErrInvalidTimestamp, got %v", in, err)
		}
	}
}

// TestFormatTimestampShapeAndMonotonic 测试一天范围内格式固定且单调不减
func TestFormatTimestampShapeAndMonotonic(t *testing.T) {
	re := regexp.MustCompile(`^\d{2}:\d{2}:\d{2}\.\d{3}$`)
	prev := ""
	for s := 0.0; s <= 86399.999; s += 7.3331 {
		got, err := FormatTimestamp(s)
		if err != nil {
			t.Fatalf("FormatTimestamp(%v): %v", s, err)
		}
		if !re.MatchString(got) {
			t.Fatalf("FormatTimestamp(%v) = %q has wrong shape", s, got)
		}
		// 定宽格式下字典序即时间序
		if got < prev {
			t.Fatalf("not monotonic: %q after %q", got, prev)
		}
		prev = got
	}
}
