package subtitle

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/z-wentao/scriptsync/pkg/models"
)

// 超过该秒数时毫秒总数无法用 int64 表示
const maxSeconds = 9e12

// FormatTimestamp 将秒数格式化为 VTT 时间格式
// 例如: 65.5 -> 00:01:05.500
// 毫秒截断而非四舍五入；小时超过 99 时自然变宽
func FormatTimestamp(seconds float64) (string, error) {
	return formatTimestamp(seconds, '.')
}

// FormatSRTTimestamp 将秒数格式化为 SRT 时间格式（毫秒分隔符为逗号）
// 例如: 65.5 -> 00:01:05,500
func FormatSRTTimestamp(seconds float64) (string, error) {
	return formatTimestamp(seconds, ',')
}

func formatTimestamp(seconds float64, sep byte) (string, error) {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return "", models.NewError(models.KindInvalidTimestampInput, "format timestamp",
			fmt.Errorf("秒数无效: %v", seconds))
	}

	if seconds >= maxSeconds {
		return "", models.NewError(models.KindInvalidTimestampInput, "format timestamp",
			fmt.Errorf("秒数超出范围: %v", seconds))
	}

	// 取最短往返十进制表示（1.2 而不是 1.19999...），小数部分直接截断到毫秒
	whole, frac, _ := strings.Cut(strconv.FormatFloat(seconds, 'f', -1, 64), ".")
	frac = (frac + "000")[:3]
	secsTotal, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return "", models.NewError(models.KindInvalidTimestampInput, "format timestamp", err)
	}
	fracMillis, _ := strconv.ParseInt(frac, 10, 64)

	totalMillis := secsTotal*1000 + fracMillis
	hours := totalMillis / 3_600_000
	minutes := totalMillis / 60_000 % 60
	secs := totalMillis / 1000 % 60
	millis := totalMillis % 1000

	return fmt.Sprintf("%02d:%02d:%02d%c%03d", hours, minutes, secs, sep, millis), nil
}
