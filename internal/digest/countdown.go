package digest

import (
	"sort"
	"time"
)

// AwardShow 颁奖礼档期，每年颁奖季前手动更新一次
type AwardShow struct {
	Name    string `json:"name"`
	Date    string `json:"date"` // YYYY-MM-DD
	Network string `json:"network"`
}

// 2026 年颁奖季
var awardCalendar = []AwardShow{
	{Name: "Golden Globes", Date: "2026-01-11", Network: "CBS"},
	{Name: "Critics Choice Awards", Date: "2026-01-18", Network: "E!"},
	{Name: "Grammy Awards", Date: "2026-02-01", Network: "CBS"},
	{Name: "BAFTA Film Awards", Date: "2026-02-22", Network: "BBC"},
	{Name: "SAG Awards", Date: "2026-03-01", Network: "Netflix"},
	{Name: "Oscars", Date: "2026-03-15", Network: "ABC"},
	{Name: "Tony Awards", Date: "2026-06-07", Network: "CBS"},
	{Name: "Emmy Awards", Date: "2026-09-20", Network: "NBC"},
}

// Countdown 距离一场颁奖礼还有多久
type Countdown struct {
	AwardShow
	DaysUntil  int  `json:"daysUntil"`
	IsToday    bool `json:"isToday"`
	IsTomorrow bool `json:"isTomorrow"`
}

// UpcomingShows 返回今天及之后的颁奖礼，按日期先后排序。
// 天数按 UTC 日历日差计算，当天算 0 天。
func UpcomingShows(now time.Time) []Countdown {
	today := dateOnly(now)
	var list []Countdown
	for _, s := range awardCalendar {
		d, err := time.Parse("2006-01-02", s.Date)
		if err != nil {
			continue
		}
		days := int(d.Sub(today).Hours() / 24)
		if days < 0 {
			continue
		}
		list = append(list, Countdown{
			AwardShow:  s,
			DaysUntil:  days,
			IsToday:    days == 0,
			IsTomorrow: days == 1,
		})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].DaysUntil < list[j].DaysUntil })
	return list
}

// NextShow 最近的一场颁奖礼，颁奖季结束后返回 nil
func NextShow(now time.Time) *Countdown {
	shows := UpcomingShows(now)
	if len(shows) == 0 {
		return nil
	}
	return &shows[0]
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
