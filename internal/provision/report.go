package provision

import (
	"time"
)

// ResourceKind — тип ресурса брокера.
type ResourceKind string

const (
	KindExchange ResourceKind = "exchange"
	KindQueue    ResourceKind = "queue"
	KindBinding  ResourceKind = "binding"
)

// Status — итог обработки ресурса.
type Status string

const (
	// StatusOK — ресурс объявлен (или уже существовал с теми же параметрами).
	StatusOK Status = "OK"

	// StatusFailed — брокер отклонил запрос.
	StatusFailed Status = "FAILED"

	// StatusSkipped — шаг не выполнялся, так как зависимый ресурс не объявлен.
	StatusSkipped Status = "SKIPPED"
)

// Result — итог по одному ресурсу.
type Result struct {
	Kind   ResourceKind `json:"kind"`
	Name   string       `json:"name"`
	Status Status       `json:"status"`
	Err    error        `json:"-"`
}

// Reason возвращает текст ошибки или пустую строку.
func (r Result) Reason() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// OK сообщает об успехе.
func (r Result) OK() bool {
	return r.Status == StatusOK
}

// Report — результат развёртывания по каждому ресурсу в порядке обработки.
type Report struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Results    []Result  `json:"results"`

	// Aborted — прогон прерван из-за разрыва соединения.
	Aborted  bool  `json:"aborted"`
	AbortErr error `json:"-"`
}

func (r *Report) add(res Result) {
	r.Results = append(r.Results, res)
}

// Lookup ищет результат по типу и имени.
func (r *Report) Lookup(kind ResourceKind, name string) (Result, bool) {
	for _, res := range r.Results {
		if res.Kind == kind && res.Name == name {
			return res, true
		}
	}
	return Result{}, false
}

// Failed возвращает все неуспешные результаты (FAILED и SKIPPED).
func (r *Report) Failed() []Result {
	var failed []Result
	for _, res := range r.Results {
		if !res.OK() {
			failed = append(failed, res)
		}
	}
	return failed
}

// Succeeded сообщает, что прогон завершён и все ресурсы объявлены.
func (r *Report) Succeeded() bool {
	return !r.Aborted && len(r.Failed()) == 0
}

// Count возвращает число результатов с данным статусом.
func (r *Report) Count(status Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == status {
			n++
		}
	}
	return n
}

// Outcomes возвращает статусы ресурсов в виде "kind/name" -> status.
// Удобно для сравнения двух прогонов.
func (r *Report) Outcomes() map[string]Status {
	out := make(map[string]Status, len(r.Results))
	for _, res := range r.Results {
		out[string(res.Kind)+"/"+res.Name] = res.Status
	}
	return out
}

// Presence — итог пассивной проверки.
type Presence string

const (
	Present Presence = "PRESENT"
	Absent  Presence = "ABSENT"
)

// Check — итог проверки одного ресурса.
type Check struct {
	Name     string   `json:"name"`
	Presence Presence `json:"presence"`
	Err      error    `json:"-"`
}

// Verification — результат проверки топологии.
type Verification struct {
	CheckedAt time.Time `json:"checked_at"`
	Queues    []Check   `json:"queues"`
	Exchanges []Check   `json:"exchanges"`

	Aborted  bool  `json:"aborted"`
	AbortErr error `json:"-"`
}

// Queue возвращает результат проверки очереди.
func (v *Verification) Queue(name string) (Presence, bool) {
	for _, c := range v.Queues {
		if c.Name == name {
			return c.Presence, true
		}
	}
	return "", false
}

// Exchange возвращает результат проверки обменника.
func (v *Verification) Exchange(name string) (Presence, bool) {
	for _, c := range v.Exchanges {
		if c.Name == name {
			return c.Presence, true
		}
	}
	return "", false
}

// Missing возвращает имена отсутствующих очередей.
func (v *Verification) Missing() []string {
	var missing []string
	for _, c := range v.Queues {
		if c.Presence != Present {
			missing = append(missing, c.Name)
		}
	}
	return missing
}

// MissingExchanges возвращает имена отсутствующих обменников.
func (v *Verification) MissingExchanges() []string {
	var missing []string
	for _, c := range v.Exchanges {
		if c.Presence != Present {
			missing = append(missing, c.Name)
		}
	}
	return missing
}

// MissingResources возвращает отсутствующие очереди, затем обменники.
func (v *Verification) MissingResources() []string {
	return append(v.Missing(), v.MissingExchanges()...)
}

// AllPresent сообщает, что все очереди и обменники найдены.
func (v *Verification) AllPresent() bool {
	return !v.Aborted && len(v.MissingResources()) == 0
}
