// Package enum переводит строковые состояния API хранилища в стабильные целые коды.
//
// Код строки равен её позиции в таблице домена, начиная с 1. Код 0 зарезервирован
// для нераспознанных значений. Таблицы только дополняются в конец: перестановка
// или вставка меняет смысл уже собранных рядов в Prometheus.
package enum

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Unknown возвращается для значения, которого нет в таблице домена.
const Unknown = 0

// Домены перечислений.
const (
	CloudSyncState    = "cloudsync_state"
	CloudSyncResult   = "cloudsync_result"
	InterfaceLink     = "interface_link_state"
	PoolHealth        = "pool_health"
	ReplicationState  = "replication_state"
	SnapshotTaskState = "snapshot_task_state"
	EnclosureStatus   = "enclosure_status"
	SmartTestResult   = "smart_test_result"
)

// tables хранит упорядоченные значения каждого домена. Только дописывать в конец.
var tables = map[string][]string{
	CloudSyncState:    {"RUNNING", "SUCCESS", "FAILED", "ABORTED", "WAITING"},
	CloudSyncResult:   {"SUCCESS", "FAILED", "ABORTED"},
	InterfaceLink:     {"LINK_STATE_UP", "LINK_STATE_DOWN", "LINK_STATE_UNKNOWN"},
	PoolHealth:        {"ONLINE", "DEGRADED", "FAULTED", "OFFLINE", "UNAVAIL", "REMOVED"},
	ReplicationState:  {"FINISHED", "RUNNING", "ERROR", "PENDING", "WAITING", "HOLD"},
	SnapshotTaskState: {"FINISHED", "RUNNING", "ERROR", "PENDING"},
	EnclosureStatus: {
		"OK", "Critical", "Noncritical", "Unrecoverable", "Not Installed",
		"Unknown", "Not Available", "Unsupported", "No Access Allowed",
	},
	SmartTestResult: {"SUCCESS", "FAILED", "RUNNING", "ABORTED", "INTERRUPTED"},
}

// Normalizer сопоставляет строки с кодами и считает нераспознанные значения.
// Создаётся один раз при старте и передаётся сборщикам по ссылке.
// Безопасен для конкурентного использования.
type Normalizer struct {
	logger  *zap.SugaredLogger
	unknown *prometheus.CounterVec
	index   map[string]map[string]int
}

// New создаёт Normalizer и регистрирует счётчик нераспознанных значений в reg.
func New(logger *zap.SugaredLogger, reg prometheus.Registerer) (*Normalizer, error) {
	unknown := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "truenas_exporter_unknown_enum_total",
		Help: "Number of enum values returned by the appliance that have no stable code.",
	}, []string{"domain"})

	if reg != nil {
		if err := reg.Register(unknown); err != nil {
			return nil, fmt.Errorf("register unknown enum counter: %w", err)
		}
	}

	index := make(map[string]map[string]int, len(tables))
	for domain, values := range tables {
		m := make(map[string]int, len(values))
		for i, v := range values {
			m[v] = i + 1
		}
		index[domain] = m
	}

	return &Normalizer{
		logger:  logger,
		unknown: unknown,
		index:   index,
	}, nil
}

// Normalize возвращает код значения raw в домене. Для неизвестного значения
// увеличивает счётчик домена на 1, пишет предупреждение и возвращает Unknown.
func (n *Normalizer) Normalize(domain, raw string) int {
	if code, ok := n.index[domain][raw]; ok {
		return code
	}

	n.unknown.WithLabelValues(domain).Inc()
	if n.logger != nil {
		n.logger.Warnw("unrecognized enum value",
			"domain", domain,
			"value", raw,
		)
	}
	return Unknown
}

// Code возвращает код значения raw в домене без учёта промахов в счётчике.
func (n *Normalizer) Code(domain, raw string) (int, bool) {
	code, ok := n.index[domain][raw]
	return code, ok
}

// UnknownCounter возвращает счётчик нераспознанных значений.
func (n *Normalizer) UnknownCounter() *prometheus.CounterVec {
	return n.unknown
}

// Codes возвращает копию таблицы домена: i-й элемент имеет код i+1.
func Codes(domain string) []string {
	values := tables[domain]
	out := make([]string, len(values))
	copy(out, values)
	return out
}

// Domains возвращает список всех доменов.
func Domains() []string {
	out := make([]string, 0, len(tables))
	for d := range tables {
		out = append(out, d)
	}
	return out
}

// Help дополняет описание метрики расшифровкой кодов домена.
func Help(base, domain string) string {
	var b strings.Builder
	b.WriteString(base)
	b.WriteString(" (0=unknown")
	for i, v := range tables[domain] {
		fmt.Fprintf(&b, ", %d=%s", i+1, v)
	}
	b.WriteString(")")
	return b.String()
}
