package stats

import (
	"regexp"
	"sort"
	"strings"
)

// LabelFrom определяет, из какой части ключа берётся значение метки.
type LabelFrom int

const (
	// FromNone означает, что метки нет.
	FromNone LabelFrom = iota
	// FromSource берёт суффикс имени источника после префикса шаблона.
	FromSource
	// FromType берёт суффикс типа после префикса шаблона.
	FromType
	// FromDataset берёт имя набора данных.
	FromDataset
)

// Template описывает класс рядов статистики и метрику, в которую они превращаются.
//
// Source и Type задаются либо точным именем, либо префиксом с завершающим "-".
type Template struct {
	Class    string
	Source   string
	Type     string
	Datasets []string

	Metric string
	Help   string

	InstanceLabel string
	InstanceFrom  LabelFrom
	SubLabel      string
	SubFrom       LabelFrom

	// Convert применяется к значению перед экспозицией.
	Convert func(float64) float64
}

// Labels возвращает имена меток семейства.
func (t *Template) Labels() []string {
	var out []string
	if t.InstanceFrom != FromNone {
		out = append(out, t.InstanceLabel)
	}
	if t.SubFrom != FromNone {
		out = append(out, t.SubLabel)
	}
	return out
}

// Классы источников.
const (
	ClassCPU         = "cpu"
	ClassDisk        = "disk"
	ClassInterface   = "interface"
	ClassARC         = "zfs_arc"
	ClassMemory      = "memory"
	ClassSwap        = "swap"
	ClassLoad        = "load"
	ClassProcesses   = "processes"
	ClassGeom        = "geom"
	ClassTemperature = "temperature"
	ClassFilesystem  = "filesystem"
)

// KelvinTenthsToCelsius переводит значение датчика из десятых долей кельвина в градусы Цельсия.
func KelvinTenthsToCelsius(v float64) float64 {
	return v/10 - 273.15
}

var rw = []string{"read", "write"}
var rxtx = []string{"rx", "tx"}
var rwd = []string{"read", "write", "delete"}
var value = []string{"value"}

// Catalogue содержит все известные классы рядов в порядке экспозиции.
var Catalogue = []Template{
	{
		Class: ClassCPU, Source: "aggregation-cpu-average", Type: "cpu-", Datasets: value,
		Metric: "truenas_cpu_usage_percent", Help: "Average CPU usage by mode across all cores.",
		SubLabel: "mode", SubFrom: FromType,
	},
	{
		Class: ClassDisk, Source: "disk-", Type: "disk_octets", Datasets: rw,
		Metric: "truenas_disk_octets_bytes_per_second", Help: "Disk throughput.",
		InstanceLabel: "disk", InstanceFrom: FromSource, SubLabel: "direction", SubFrom: FromDataset,
	},
	{
		Class: ClassDisk, Source: "disk-", Type: "disk_ops", Datasets: rw,
		Metric: "truenas_disk_ops_per_second", Help: "Disk operations.",
		InstanceLabel: "disk", InstanceFrom: FromSource, SubLabel: "direction", SubFrom: FromDataset,
	},
	{
		Class: ClassDisk, Source: "disk-", Type: "disk_time", Datasets: rw,
		Metric: "truenas_disk_time_milliseconds", Help: "Average time per disk operation.",
		InstanceLabel: "disk", InstanceFrom: FromSource, SubLabel: "direction", SubFrom: FromDataset,
	},
	{
		Class: ClassDisk, Source: "disk-", Type: "disk_io_time", Datasets: []string{"io_time", "weighted_io_time"},
		Metric: "truenas_disk_io_time_milliseconds", Help: "Time spent doing disk I/O.",
		InstanceLabel: "disk", InstanceFrom: FromSource, SubLabel: "kind", SubFrom: FromDataset,
	},
	{
		Class: ClassInterface, Source: "interface-", Type: "if_octets", Datasets: rxtx,
		Metric: "truenas_interface_octets_bytes_per_second", Help: "Interface traffic.",
		InstanceLabel: "interface", InstanceFrom: FromSource, SubLabel: "direction", SubFrom: FromDataset,
	},
	{
		Class: ClassInterface, Source: "interface-", Type: "if_packets", Datasets: rxtx,
		Metric: "truenas_interface_packets_per_second", Help: "Interface packets.",
		InstanceLabel: "interface", InstanceFrom: FromSource, SubLabel: "direction", SubFrom: FromDataset,
	},
	{
		Class: ClassInterface, Source: "interface-", Type: "if_errors", Datasets: rxtx,
		Metric: "truenas_interface_errors_per_second", Help: "Interface errors.",
		InstanceLabel: "interface", InstanceFrom: FromSource, SubLabel: "direction", SubFrom: FromDataset,
	},
	{
		Class: ClassARC, Source: "zfs_arc", Type: "cache_size-", Datasets: value,
		Metric: "truenas_zfs_arc_size_bytes", Help: "ZFS ARC and L2ARC size.",
		SubLabel: "cache", SubFrom: FromType,
	},
	{
		Class: ClassARC, Source: "zfs_arc", Type: "cache_ratio-", Datasets: value,
		Metric: "truenas_zfs_arc_hit_ratio", Help: "ZFS ARC hit ratio.",
		SubLabel: "cache", SubFrom: FromType,
	},
	{
		Class: ClassARC, Source: "zfs_arc", Type: "cache_result-", Datasets: value,
		Metric: "truenas_zfs_arc_results_per_second", Help: "ZFS ARC lookups by result.",
		SubLabel: "result", SubFrom: FromType,
	},
	{
		Class: ClassMemory, Source: "memory", Type: "memory-", Datasets: value,
		Metric: "truenas_memory_bytes", Help: "Memory usage by state.",
		SubLabel: "state", SubFrom: FromType,
	},
	{
		Class: ClassSwap, Source: "swap", Type: "swap-", Datasets: value,
		Metric: "truenas_swap_bytes", Help: "Swap usage by state.",
		SubLabel: "state", SubFrom: FromType,
	},
	{
		Class: ClassLoad, Source: "load", Type: "load", Datasets: []string{"shortterm", "midterm", "longterm"},
		Metric: "truenas_load_average", Help: "System load average.",
		SubLabel: "period", SubFrom: FromDataset,
	},
	{
		Class: ClassProcesses, Source: "processes", Type: "ps_state-", Datasets: value,
		Metric: "truenas_processes", Help: "Number of processes by state.",
		SubLabel: "state", SubFrom: FromType,
	},
	{
		Class: ClassGeom, Source: "geom_stat", Type: "geom_busy_percent-", Datasets: value,
		Metric: "truenas_geom_busy_percent", Help: "GEOM provider busy percentage.",
		InstanceLabel: "disk", InstanceFrom: FromType,
	},
	{
		Class: ClassGeom, Source: "geom_stat", Type: "geom_queue-", Datasets: []string{"length"},
		Metric: "truenas_geom_queue_length", Help: "GEOM provider queue length.",
		InstanceLabel: "disk", InstanceFrom: FromType,
	},
	{
		Class: ClassGeom, Source: "geom_stat", Type: "geom_latency-", Datasets: rwd,
		Metric: "truenas_geom_latency_milliseconds", Help: "GEOM provider latency.",
		InstanceLabel: "disk", InstanceFrom: FromType, SubLabel: "op", SubFrom: FromDataset,
	},
	{
		Class: ClassGeom, Source: "geom_stat", Type: "geom_ops_rwd-", Datasets: rwd,
		Metric: "truenas_geom_ops_per_second", Help: "GEOM provider operations.",
		InstanceLabel: "disk", InstanceFrom: FromType, SubLabel: "op", SubFrom: FromDataset,
	},
	{
		Class: ClassTemperature, Source: "cputemp-", Type: "temperature", Datasets: value,
		Metric: "truenas_cpu_temperature_celsius", Help: "CPU core temperature.",
		InstanceLabel: "cpu", InstanceFrom: FromSource,
		Convert: KelvinTenthsToCelsius,
	},
	{
		Class: ClassFilesystem, Source: "df-", Type: "df_complex-", Datasets: value,
		Metric: "truenas_filesystem_bytes", Help: "Filesystem usage by state.",
		InstanceLabel: "filesystem", InstanceFrom: FromSource, SubLabel: "state", SubFrom: FromType,
	},
}

// SeriesKey идентифицирует один ряд в API статистики.
type SeriesKey struct {
	Source  string `json:"source"`
	Type    string `json:"type"`
	Dataset string `json:"dataset"`
}

// SeriesMeta связывает ключ ряда с шаблоном и значениями меток.
type SeriesMeta struct {
	Key      SeriesKey
	Template *Template
	Instance string
	Sub      string
}

// LabelValues возвращает значения меток в порядке Template.Labels().
func (m SeriesMeta) LabelValues() []string {
	var out []string
	if m.Template.InstanceFrom != FromNone {
		out = append(out, m.Instance)
	}
	if m.Template.SubFrom != FromNone {
		out = append(out, m.Sub)
	}
	return out
}

// Options управляет выбором рядов.
type Options struct {
	// SkipSNMP исключает счётчики сетевых интерфейсов.
	SkipSNMP bool
	// DFExclude исключает файловые системы, имя которых совпадает с выражением.
	DFExclude *regexp.Regexp
}

// match сравнивает имя с шаблоном: точное совпадение или префикс с "-".
func match(name, pattern string) (suffix string, ok bool) {
	if strings.HasSuffix(pattern, "-") {
		if strings.HasPrefix(name, pattern) && len(name) > len(pattern) {
			return name[len(pattern):], true
		}
		return "", false
	}
	return "", name == pattern
}

// BuildKeys пересекает каталог с живым перечнем источников.
// Порядок детерминирован: источники и типы сортируются, внутри типа
// сохраняется порядок каталога и наборов данных.
func BuildKeys(sources map[string][]string, opts Options) []SeriesMeta {
	names := make([]string, 0, len(sources))
	for s := range sources {
		names = append(names, s)
	}
	sort.Strings(names)

	var out []SeriesMeta
	for _, src := range names {
		types := append([]string(nil), sources[src]...)
		sort.Strings(types)

		for _, typ := range types {
			for i := range Catalogue {
				t := &Catalogue[i]
				if t.Class == ClassInterface && opts.SkipSNMP {
					continue
				}

				srcSuffix, ok := match(src, t.Source)
				if !ok {
					continue
				}
				typSuffix, ok := match(typ, t.Type)
				if !ok {
					continue
				}

				if t.Class == ClassFilesystem && opts.DFExclude != nil && opts.DFExclude.MatchString(srcSuffix) {
					continue
				}

				for _, ds := range t.Datasets {
					meta := SeriesMeta{
						Key:      SeriesKey{Source: src, Type: typ, Dataset: ds},
						Template: t,
					}
					meta.Instance = pick(t.InstanceFrom, srcSuffix, typSuffix, ds)
					meta.Sub = pick(t.SubFrom, srcSuffix, typSuffix, ds)
					out = append(out, meta)
				}
			}
		}
	}
	return out
}

func pick(from LabelFrom, src, typ, ds string) string {
	switch from {
	case FromSource:
		return src
	case FromType:
		return typ
	case FromDataset:
		return ds
	}
	return ""
}
