// Package clock 提供可注入的时钟与 UTC 日历窗口计算。
// 所有窗口均为左闭右开区间 [Start, End)。
package clock

import "time"

// DateLayout 日期格式
const DateLayout = "2006-01-02"

// Clock 返回当前时刻
type Clock func() time.Time

// System 系统时钟（UTC）
func System() Clock {
	return func() time.Time { return time.Now().UTC() }
}

// Fixed 固定时钟，测试使用
func Fixed(t time.Time) Clock {
	return func() time.Time { return t }
}

// Window 时间窗口 [Start, End)
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains 判断时刻是否落在窗口内
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// ── 日期运算 ──

// Date 构造 UTC 零点日期
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOf 取时刻在 UTC 下的日历日期（零点）
func DateOf(t time.Time) time.Time {
	u := t.UTC()
	return Date(u.Year(), u.Month(), u.Day())
}

// Weekday 周一为 0，周日为 6
func Weekday(t time.Time) int {
	return (int(t.UTC().Weekday()) + 6) % 7
}

// AddDays 日期加减天数
func AddDays(d time.Time, days int) time.Time {
	return d.AddDate(0, 0, days)
}

// WeekStart 返回不晚于 d 的周一
func WeekStart(d time.Time) time.Time {
	day := DateOf(d)
	return AddDays(day, -Weekday(day))
}

// MonthStart 当月 1 日
func MonthStart(d time.Time) time.Time {
	u := d.UTC()
	return Date(u.Year(), u.Month(), 1)
}

// NextMonthStart 下月 1 日
func NextMonthStart(d time.Time) time.Time {
	return MonthStart(d).AddDate(0, 1, 0)
}

// ShiftMonth 将月初日期平移若干个月
func ShiftMonth(d time.Time, delta int) time.Time {
	return MonthStart(d).AddDate(0, delta, 0)
}

// MinDate 取较早的日期
func MinDate(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

// ── 窗口 ──

// TodayWindow 今日窗口 [00:00, 次日 00:00)
func TodayWindow(now time.Time) Window {
	start := DateOf(now)
	return Window{Start: start, End: AddDays(start, 1)}
}

// WeekWindow 本周窗口 [周一 00:00, 下周一 00:00)
func WeekWindow(now time.Time) Window {
	start := WeekStart(now)
	return Window{Start: start, End: AddDays(start, 7)}
}

// DateRangeWindow 闭区间日期 [startDate, endDate] 对应的时刻窗口
func DateRangeWindow(startDate, endDate time.Time) Window {
	return Window{Start: DateOf(startDate), End: AddDays(DateOf(endDate), 1)}
}
