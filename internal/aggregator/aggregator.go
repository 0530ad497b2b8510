package aggregator

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/k-negishi/crm-calendar-sync/internal/domain"
	"github.com/k-negishi/crm-calendar-sync/internal/recurrence"
)

// 元レコードで許容するフィールド名の揺れ
var (
	birthDateKeys    = []string{"birthDate", "birthday", "dataNascimento", "dateOfBirth"}
	cpcvDateKeys     = []string{"cpcvDate", "promissoryDate"}
	escrituraKeys    = []string{"escrituraDate", "deedDate"}
	visitDateKeys    = []string{"visitDate"}
	followUpDateKeys = []string{"followUpDate", "followupDate"}
	dueDateKeys      = []string{"dueDate"}
)

// Records 集約対象の元レコード一式
type Records struct {
	Clients    []domain.Record
	Properties []domain.Record
	Tasks      []domain.Record
	// Opportunities クライアントIDごとの商談
	Opportunities map[string][]domain.Record
}

// Aggregator 元レコードを共通のEvent形式に正規化する
type Aggregator struct {
	location *time.Location
	logger   *zap.Logger
}

// New Aggregatorを作成
func New(location *time.Location, logger *zap.Logger) *Aggregator {
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{location: location, logger: logger}
}

// Aggregate 全レコードからイベント集合を導出する。元レコードは変更しない
func (a *Aggregator) Aggregate(records Records, now time.Time) []domain.Event {
	yStart, yEnd := recurrence.Window(now.In(a.location))

	var events []domain.Event
	for _, client := range records.Clients {
		events = append(events, a.birthdayEvents(client, yStart, yEnd)...)
	}
	for _, property := range records.Properties {
		events = append(events, a.propertyEvents(property, yStart, yEnd)...)
	}
	for _, client := range records.Clients {
		clientID := client.String("id")
		if clientID == "" {
			continue
		}
		for _, opp := range records.Opportunities[clientID] {
			events = append(events, a.opportunityEvents(client, opp)...)
		}
	}
	for _, task := range records.Tasks {
		if ev, ok := a.taskEvent(task); ok {
			events = append(events, ev)
		}
	}
	return events
}

func (a *Aggregator) date(rec domain.Record, keys []string) (time.Time, bool) {
	raw, ok := rec.First(keys...)
	if !ok {
		return time.Time{}, false
	}
	d, ok := ParseFlexibleDate(raw, a.location)
	if !ok {
		a.logger.Debug("日付を解析できないためスキップします",
			zap.String("id", rec.String("id")), zap.Strings("fields", keys), zap.Any("value", raw))
	}
	return d, ok
}

func clientName(client domain.Record) string {
	if name := client.String("name", "nome"); name != "" {
		return name
	}
	return strings.TrimSpace(client.String("firstName") + " " + client.String("lastName"))
}

func (a *Aggregator) birthdayEvents(client domain.Record, yStart, yEnd int) []domain.Event {
	id := client.String("id")
	if id == "" {
		return nil
	}
	birth, ok := a.date(client, birthDateKeys)
	if !ok {
		return nil
	}
	name := clientName(client)

	var events []domain.Event
	warned := false
	for _, occ := range recurrence.Expand(birth, yStart, yEnd, recurrence.Birthday) {
		age := occ.Year - birth.Year()
		title := "🎂 " + name
		if age > 0 {
			title = fmt.Sprintf("🎂 %s (%d anos)", name, age)
		}
		if age < 0 && !warned {
			// 登録前の年にも出力している（負の年齢）
			a.logger.Warn("生年より前の年の誕生日イベントを出力しています",
				zap.String("clientId", id), zap.Int("birthYear", birth.Year()), zap.Int("fromYear", occ.Year))
			warned = true
		}
		events = append(events, domain.Event{
			ID:          fmt.Sprintf("birthday-%s-%d", id, occ.Year),
			Type:        domain.TypeBirthday,
			Title:       title,
			Description: "Aniversário de " + name,
			Date:        occ.Date,
			Recurring:   true,
			ClientID:    id,
		})
	}
	return events
}

func (a *Aggregator) propertyEvents(property domain.Record, yStart, yEnd int) []domain.Event {
	id := property.String("id")
	if id == "" {
		return nil
	}
	label := property.String("title", "reference", "address", "name")
	location := property.String("address", "location")

	var events []domain.Event
	if cpcv, ok := a.date(property, cpcvDateKeys); ok {
		events = append(events, domain.Event{
			ID:          "cpcv-" + id,
			Type:        domain.TypeCPCV,
			Title:       "📝 CPCV - " + label,
			Description: "Contrato promessa de compra e venda",
			Location:    location,
			Date:        cpcv,
			PropertyID:  id,
			ClientID:    property.String("clientId"),
		})
	}

	deed, ok := a.date(property, escrituraKeys)
	if !ok {
		return events
	}
	for _, occ := range recurrence.Expand(deed, yStart, yEnd, recurrence.SinceOrigin) {
		years := occ.Year - deed.Year()
		title := "🔑 Escritura - " + label
		priority := domain.PriorityHigh
		if years > 0 {
			title = fmt.Sprintf("🔑 Escritura - %s (%d anos)", label, years)
			priority = domain.PriorityMedium
		}
		events = append(events, domain.Event{
			ID:         fmt.Sprintf("escritura-%s-%d", id, occ.Year),
			Type:       domain.TypeEscritura,
			Title:      title,
			Location:   location,
			Date:       occ.Date,
			Recurring:  true,
			Priority:   priority,
			PropertyID: id,
			ClientID:   property.String("clientId"),
		})
	}
	return events
}

func (a *Aggregator) opportunityEvents(client, opp domain.Record) []domain.Event {
	id := opp.String("id")
	if id == "" {
		return nil
	}
	name := clientName(client)
	base := domain.Event{
		Description:   opp.String("title", "notes", "description"),
		Location:      opp.String("location", "address"),
		ClientID:      client.String("id"),
		PropertyID:    opp.String("propertyId"),
		OpportunityID: id,
	}

	var events []domain.Event
	if visit, ok := a.date(opp, visitDateKeys); ok {
		ev := base
		ev.ID = "visit-" + id
		ev.Type = domain.TypeVisit
		ev.Title = "👁️ Visita - " + name
		ev.Date = visit
		ev.Time = clock(opp.String("visitTime"))
		events = append(events, ev)
	}
	if followUp, ok := a.date(opp, followUpDateKeys); ok {
		ev := base
		ev.ID = "followup-" + id
		ev.Type = domain.TypeFollowUp
		ev.Title = "📞 Follow-up - " + name
		ev.Date = followUp
		ev.Time = clock(opp.String("followUpTime", "followupTime"))
		events = append(events, ev)
	}
	return events
}

func (a *Aggregator) taskEvent(task domain.Record) (domain.Event, bool) {
	id := task.String("id")
	if id == "" {
		return domain.Event{}, false
	}
	due, ok := a.date(task, dueDateKeys)
	if !ok {
		return domain.Event{}, false
	}
	return domain.Event{
		ID:          "task-" + id,
		Type:        domain.TypeTask,
		Title:       "✅ " + task.String("title", "name"),
		Description: task.String("description"),
		Location:    task.String("location"),
		Time:        clock(task.String("dueTime", "time")),
		Date:        due,
		Priority:    domain.ParsePriority(task.String("priority")),
		ClientID:    task.String("clientId"),
		PropertyID:  task.String("propertyId"),
	}, true
}

// clock HH:MMとして妥当な場合のみ返す
func clock(s string) string {
	if _, _, ok := domain.ParseClock(s); ok {
		return s
	}
	return ""
}
