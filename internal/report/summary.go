package report

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/omerfehmii/izlenebilir-gorev-kuyrugu/internal/provision"
	"github.com/omerfehmii/izlenebilir-gorev-kuyrugu/internal/topology"
)

// notRun — статус этапа, который не выполнялся.
const notRun = "-"

// ExchangeLine — строка отчёта по обменнику.
type ExchangeLine struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Durable  bool   `json:"durable"`
	Declared string `json:"declared"`
	Error    string `json:"error,omitempty"`
	Verified string `json:"verified"`
}

// QueueLine — блок отчёта по очереди.
type QueueLine struct {
	Name        string  `json:"name"`
	DeadLetter  bool    `json:"dead_letter,omitempty"`
	MaxPriority int     `json:"max_priority,omitempty"`
	TTLSeconds  float64 `json:"ttl_seconds,omitempty"`
	MaxLength   int     `json:"max_length,omitempty"`
	RoutingKey  string  `json:"routing_key"`
	Exchange    string  `json:"exchange"`
	Declared    string  `json:"declared"`
	DeclareErr  string  `json:"declare_error,omitempty"`
	Bound       string  `json:"bound"`
	BindErr     string  `json:"bind_error,omitempty"`
	Verified    string  `json:"verified"`
}

// Totals — счётчики результатов развёртывания.
type Totals struct {
	OK      int `json:"ok"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// Summary — итог прогона в виде данных.
type Summary struct {
	Exchanges  []ExchangeLine `json:"exchanges"`
	Queues     []QueueLine    `json:"queues"`
	DeadLetter QueueLine      `json:"dead_letter"`
	Totals     *Totals        `json:"totals,omitempty"`
	Missing    []string       `json:"missing,omitempty"`
	Aborted    string         `json:"aborted,omitempty"`
}

// Build собирает Summary. prov и ver могут быть nil (этап не выполнялся).
func Build(def *topology.Definition, prov *provision.Report, ver *provision.Verification) Summary {
	s := Summary{}

	for _, ex := range def.Exchanges() {
		line := ExchangeLine{
			Name:    ex.Name,
			Kind:    string(ex.Kind),
			Durable: ex.Durable,
		}
		line.Declared, line.Error = resultStatus(prov, provision.KindExchange, ex.Name)
		line.Verified = exchangePresence(ver, ex.Name)
		s.Exchanges = append(s.Exchanges, line)
	}

	for _, q := range def.Queues() {
		b := def.BindingFor(q)
		line := QueueLine{
			Name:        q.Name,
			MaxPriority: q.MaxPriority,
			TTLSeconds:  float64(q.TTLMillis) / 1000,
			MaxLength:   q.MaxLength,
			RoutingKey:  q.RoutingKey,
			Exchange:    b.Exchange,
		}
		fillQueueStatus(&line, def, b, prov, ver)
		s.Queues = append(s.Queues, line)
	}

	dl := def.DeadLetterBinding()
	s.DeadLetter = QueueLine{
		Name:       dl.Queue,
		DeadLetter: true,
		RoutingKey: dl.RoutingKey,
		Exchange:   dl.Exchange,
	}
	fillQueueStatus(&s.DeadLetter, def, dl, prov, ver)

	if prov != nil {
		s.Totals = &Totals{
			OK:      prov.Count(provision.StatusOK),
			Failed:  prov.Count(provision.StatusFailed),
			Skipped: prov.Count(provision.StatusSkipped),
		}
		if prov.Aborted {
			s.Aborted = errText(prov.AbortErr)
		}
	}
	if ver != nil {
		s.Missing = ver.MissingResources()
		if ver.Aborted && s.Aborted == "" {
			s.Aborted = errText(ver.AbortErr)
		}
	}

	return s
}

func fillQueueStatus(line *QueueLine, def *topology.Definition, b topology.Binding, prov *provision.Report, ver *provision.Verification) {
	line.Declared, line.DeclareErr = resultStatus(prov, provision.KindQueue, b.Queue)
	line.Bound, line.BindErr = resultStatus(prov, provision.KindBinding, b.String())
	line.Verified = notRun
	if ver != nil {
		if p, ok := ver.Queue(b.Queue); ok {
			line.Verified = string(p)
		}
	}
}

func resultStatus(prov *provision.Report, kind provision.ResourceKind, name string) (string, string) {
	if prov == nil {
		return notRun, ""
	}
	res, ok := prov.Lookup(kind, name)
	if !ok {
		return notRun, ""
	}
	return string(res.Status), res.Reason()
}

func exchangePresence(ver *provision.Verification, name string) string {
	if ver == nil {
		return notRun
	}
	if p, ok := ver.Exchange(name); ok {
		return string(p)
	}
	return notRun
}

func errText(err error) string {
	if err == nil {
		return "aborted"
	}
	return err.Error()
}

// Summarize возвращает текстовый отчёт.
func Summarize(def *topology.Definition, prov *provision.Report, ver *provision.Verification) string {
	return Build(def, prov, ver).Text()
}

// Text форматирует Summary для терминала.
func (s Summary) Text() string {
	var b strings.Builder

	b.WriteString("Priority Queue Topology\n")
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	headers := []string{"EXCHANGE", "KIND", "DURABLE", "DECLARED", "VERIFIED"}
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	dashes := make([]string, len(headers))
	for i, h := range headers {
		dashes[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(tw, strings.Join(dashes, "\t"))
	for _, ex := range s.Exchanges {
		fmt.Fprintln(tw, strings.Join([]string{
			ex.Name, ex.Kind, yesNo(ex.Durable), withReason(ex.Declared, ex.Error), ex.Verified,
		}, "\t"))
	}
	tw.Flush()
	b.WriteString("\n")

	for _, q := range s.Queues {
		writeQueue(&b, q)
	}
	writeQueue(&b, s.DeadLetter)

	if s.Totals != nil {
		fmt.Fprintf(&b, "Provisioned: %d ok, %d failed, %d skipped\n", s.Totals.OK, s.Totals.Failed, s.Totals.Skipped)
	}
	if len(s.Missing) > 0 {
		fmt.Fprintf(&b, "Missing: %s\n", strings.Join(s.Missing, ", "))
	}
	if s.Aborted != "" {
		fmt.Fprintf(&b, "Aborted: %s\n", s.Aborted)
	}

	return b.String()
}

func writeQueue(b *strings.Builder, q QueueLine) {
	if q.DeadLetter {
		fmt.Fprintf(b, "%s (dead letter)\n", q.Name)
	} else {
		fmt.Fprintf(b, "%s\n", q.Name)
		fmt.Fprintf(b, "   Priority:   %d/255\n", q.MaxPriority)
		fmt.Fprintf(b, "   TTL:        %ss\n", strconv.FormatFloat(q.TTLSeconds, 'f', -1, 64))
		fmt.Fprintf(b, "   Max Length: %d\n", q.MaxLength)
	}
	fmt.Fprintf(b, "   Routing:    %s -> %s\n", q.RoutingKey, q.Exchange)
	fmt.Fprintf(b, "   Declared:   %s\n", withReason(q.Declared, q.DeclareErr))
	fmt.Fprintf(b, "   Bound:      %s\n", withReason(q.Bound, q.BindErr))
	fmt.Fprintf(b, "   Verified:   %s\n\n", q.Verified)
}

func withReason(status, reason string) string {
	if reason == "" {
		return status
	}
	return status + " (" + reason + ")"
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
