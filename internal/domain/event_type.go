package domain

// EventType イベント種別（閉じた列挙）
type EventType string

const (
	TypeBirthday  EventType = "birthday"
	TypeCPCV      EventType = "cpcv"
	TypeEscritura EventType = "escritura"
	TypeTask      EventType = "task"
	TypeVisit     EventType = "visit"
	TypeFollowUp  EventType = "followup"
)

// TypeMeta 種別ごとの表示用メタデータ。インスタンスには保持せず種別から参照する
type TypeMeta struct {
	Label     string
	Color     string
	Editable  bool
	Recurring bool
}

var typeMetas = map[EventType]TypeMeta{
	TypeBirthday:  {Label: "Aniversário", Color: "#f59e0b", Editable: false, Recurring: true},
	TypeCPCV:      {Label: "CPCV", Color: "#3b82f6", Editable: false, Recurring: false},
	TypeEscritura: {Label: "Escritura", Color: "#10b981", Editable: false, Recurring: true},
	TypeTask:      {Label: "Tarefa", Color: "#8b5cf6", Editable: true, Recurring: false},
	TypeVisit:     {Label: "Visita", Color: "#ef4444", Editable: true, Recurring: false},
	TypeFollowUp:  {Label: "Follow-up", Color: "#06b6d4", Editable: true, Recurring: false},
}

// AllTypes 全種別を固定順で返す
func AllTypes() []EventType {
	return []EventType{TypeBirthday, TypeCPCV, TypeEscritura, TypeTask, TypeVisit, TypeFollowUp}
}

// Meta 種別のメタデータを返す。未知の種別は編集不可・非繰り返しの既定値
func (t EventType) Meta() TypeMeta {
	if m, ok := typeMetas[t]; ok {
		return m
	}
	return TypeMeta{Label: string(t), Color: "#6b7280"}
}

// Valid 既知の種別かどうか
func (t EventType) Valid() bool {
	_, ok := typeMetas[t]
	return ok
}
