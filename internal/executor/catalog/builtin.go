package catalog

import (
	"time"

	"github.com/liyander/secops-mcp/internal/executor/core"
	"github.com/liyander/secops-mcp/internal/executor/normalizer"
)

// 行格式的正则，命名分组即输出字段
const (
	dirsearchPattern = `^(?:\[(?<time>[\d:]+)\]\s+)?(?<status>\d{3})\s+-\s+(?<size>\S+)\s+-\s+(?<url>\S+)(?:\s+->\s+(?<redirect>\S+))?`
	sqlmapPattern    = `^\s*(?<key>Parameter|Type|Title|Payload):\s*(?<value>.+?)\s*$`
	hashcatPattern   = `^(?<hash>.+):(?<plain>.*)$`
)

// output_format 选项，只影响追加的参数和解析策略
func outputFormatOption() core.OptionSpec {
	return core.OptionSpec{
		Name:        "output_format",
		Kind:        core.KindEnum,
		Style:       core.StyleLocal,
		Default:     "json",
		Choices:     []string{"json", "text"},
		Description: "Output format (json or text)",
	}
}

// Builtin 内置工具表，每次调用返回新的实例
func Builtin() []*core.ToolSpec {
	return []*core.ToolSpec{
		{
			Name:        core.ToolNuclei,
			MCPName:     "nuclei_scan_wrapper",
			Description: "Run a nuclei template scan against a target",
			Category:    "vulnerability",
			Binary:      "nuclei",
			Options: []core.OptionSpec{
				{Name: "target", Flag: "-u", Required: true, Description: "Target URL or host"},
				{Name: "templates", Flag: "-t", Kind: core.KindList, Description: "Template files or directories"},
				{Name: "severity", Flag: "-severity", Kind: core.KindJoined, Description: "Severities to run (info, low, medium, high, critical)"},
				{Name: "tags", Flag: "-tags", Kind: core.KindJoined, Description: "Template tags to run"},
				{Name: "rate_limit", Flag: "-rl", Kind: core.KindInt, Description: "Maximum requests per second"},
				outputFormatOption(),
			},
			Fixed:        []string{"-silent", "-no-color"},
			FormatOption: "output_format",
			Formats: map[string]core.FormatSpec{
				"json": {Args: []string{"-jsonl"}, Parse: normalizer.JSONLines{}},
				"text": {Parse: normalizer.Lines{}},
			},
			Exit:           core.ExitZero(),
			TargetOption:   "target",
			DefaultTimeout: 10 * time.Minute,
		},
		{
			Name:        core.ToolFfuf,
			MCPName:     "ffuf_wrapper",
			Description: "Fuzz a URL with ffuf (use FUZZ as the keyword)",
			Category:    "fuzzing",
			Binary:      "ffuf",
			Options: []core.OptionSpec{
				{Name: "url", Flag: "-u", Required: true, Description: "Target URL containing FUZZ"},
				{Name: "wordlist", Flag: "-w", Required: true, Description: "Wordlist path"},
				{Name: "filter_code", Flag: "-fc", Default: "404", Description: "Filter out these status codes"},
				{Name: "match_code", Flag: "-mc", Description: "Match only these status codes"},
				{Name: "method", Flag: "-X", Upper: true, Description: "HTTP method"},
				{Name: "headers", Flag: "-H", Kind: core.KindList, Description: "Extra request headers"},
				{Name: "threads", Flag: "-t", Kind: core.KindInt, Description: "Concurrent threads"},
			},
			Fixed:          []string{"-json", "-s"},
			Parse:          normalizer.JSONLines{},
			Exit:           core.ExitZero(),
			TargetOption:   "url",
			DefaultTimeout: 10 * time.Minute,
		},
		{
			Name:        core.ToolWfuzz,
			MCPName:     "wfuzz_wrapper",
			Description: "Fuzz a URL with wfuzz (use FUZZ as the keyword)",
			Category:    "fuzzing",
			Binary:      "wfuzz",
			Options: []core.OptionSpec{
				{Name: "wordlist", Flag: "-w", Required: true, Description: "Wordlist path"},
				{Name: "filter_code", Flag: "--hc", Default: "404", Description: "Hide responses with these status codes"},
				{Name: "url", Style: core.StylePositional, Required: true, Description: "Target URL containing FUZZ"},
			},
			Fixed:          []string{"-o", "json"},
			Parse:          normalizer.JSONDocument{},
			Exit:           core.ExitZero(),
			TargetOption:   "url",
			DefaultTimeout: 10 * time.Minute,
		},
		{
			Name:        core.ToolSqlmap,
			MCPName:     "sqlmap_wrapper",
			Description: "Test a URL for SQL injection with sqlmap",
			Category:    "injection",
			Binary:      "sqlmap",
			Options: []core.OptionSpec{
				{Name: "url", Flag: "-u", Required: true, Description: "Target URL"},
				{Name: "risk", Flag: "--risk", Kind: core.KindInt, Default: 1, Description: "Risk of tests (1-3)"},
				{Name: "level", Flag: "--level", Kind: core.KindInt, Default: 1, Description: "Level of tests (1-5)"},
				{Name: "data", Flag: "--data", Description: "POST body"},
				{Name: "forms", Flag: "--forms", Kind: core.KindBool, Description: "Parse and test forms on the target"},
				{Name: "crawl", Flag: "--crawl", Kind: core.KindInt, Description: "Crawl depth"},
			},
			Fixed:          []string{"--batch"},
			Parse:          normalizer.MustPattern(sqlmapPattern),
			Reduce:         reduceSqlmap,
			Exit:           core.ExitZero(),
			TargetOption:   "url",
			DefaultTimeout: 15 * time.Minute,
		},
		{
			Name:        core.ToolNmap,
			MCPName:     "nmap_wrapper",
			Description: "Scan hosts and ports with nmap",
			Category:    "network",
			Binary:      "nmap",
			Options: []core.OptionSpec{
				{
					Name: "scan_type", Flag: "-", Kind: core.KindEnum, Style: core.StyleAttached, Default: "sV",
					Choices:     []string{"sS", "sT", "sU", "sV", "sA", "sN", "sF", "sX", "sn", "sC"},
					Description: "Scan technique",
				},
				{Name: "ports", Flag: "-p", Description: "Port list or range"},
				{Name: "timing", Flag: "-T", Kind: core.KindInt, Style: core.StyleAttached, Description: "Timing template (0-5)"},
				{Name: "target", Style: core.StylePositional, Required: true, Description: "Target host, range or CIDR"},
			},
			Fixed:          []string{"-oX", "-"},
			Parse:          normalizer.NmapXML{},
			Exit:           core.ExitZero(),
			TargetOption:   "target",
			DefaultTimeout: 15 * time.Minute,
		},
		{
			Name:        core.ToolHashcat,
			MCPName:     "hashcat_wrapper",
			Description: "Crack hashes with hashcat",
			Category:    "cracking",
			Binary:      "hashcat",
			Options: []core.OptionSpec{
				{Name: "hash_type", Flag: "-m", Kind: core.KindInt, Required: true, Description: "Hash mode"},
				{Name: "attack_mode", Flag: "-a", Kind: core.KindInt, Default: 0, Description: "Attack mode"},
				{Name: "hash_file", Style: core.StylePositional, Required: true, Description: "File with hashes"},
				{Name: "wordlist", Style: core.StylePositional, Required: true, Description: "Wordlist path"},
			},
			Fixed: []string{"--quiet", "--potfile-disable"},
			Parse: normalizer.MustPattern(hashcatPattern),
			// 1 表示字典跑完但没有破解
			Exit:           core.ExitConvention{SuccessCodes: []int{0, 1}},
			TargetOption:   "hash_file",
			DefaultTimeout: time.Hour,
		},
		{
			Name:        core.ToolHttpx,
			MCPName:     "httpx_wrapper",
			Description: "Probe URLs with httpx",
			Category:    "recon",
			Binary:      "httpx",
			Options: []core.OptionSpec{
				{Name: "urls", Flag: "-u", Kind: core.KindList, Required: true, Description: "URLs or hosts to probe"},
				{Name: "status_codes", Flag: "-mc", Kind: core.KindJoined, Description: "Match status codes"},
				{Name: "title", Flag: "-title", Kind: core.KindBool, Description: "Extract page title"},
				{Name: "tech_detect", Flag: "-td", Kind: core.KindBool, Description: "Detect technologies"},
			},
			Fixed:          []string{"-json", "-silent"},
			Parse:          normalizer.JSONLines{},
			Exit:           core.ExitZero(),
			TargetOption:   "urls",
			DefaultTimeout: 5 * time.Minute,
		},
		{
			Name:        core.ToolSubfinder,
			MCPName:     "subfinder_wrapper",
			Description: "Enumerate subdomains with subfinder",
			Category:    "recon",
			Binary:      "subfinder",
			Options: []core.OptionSpec{
				{Name: "domain", Flag: "-d", Kind: core.KindDomain, Required: true, Description: "Root domain"},
				{Name: "recursive", Flag: "-recursive", Kind: core.KindBool, Description: "Use recursive sources"},
				{Name: "all", Flag: "-all", Kind: core.KindBool, Description: "Use all sources"},
			},
			Fixed:          []string{"-oJ", "-silent"},
			Parse:          normalizer.JSONLines{},
			Exit:           core.ExitZero(),
			TargetOption:   "domain",
			DefaultTimeout: 5 * time.Minute,
		},
		{
			Name:        core.ToolTlsx,
			MCPName:     "tlsx_wrapper",
			Description: "Grab TLS certificate data with tlsx",
			Category:    "tls",
			Binary:      "tlsx",
			Options: []core.OptionSpec{
				{Name: "host", Flag: "-u", Required: true, Description: "Target host"},
				{Name: "port", Flag: "-p", Kind: core.KindInt, Default: 443, Description: "TLS port"},
			},
			Fixed:          []string{"-json", "-silent"},
			Parse:          normalizer.JSONLines{},
			Exit:           core.ExitZero(),
			TargetOption:   "host",
			DefaultTimeout: 2 * time.Minute,
		},
		{
			Name:        core.ToolXSStrike,
			MCPName:     "xsstrike_wrapper",
			Description: "Test a URL for XSS with XSStrike",
			Category:    "xss",
			Binary:      "xsstrike",
			Options: []core.OptionSpec{
				{Name: "url", Flag: "-u", Required: true, Description: "Target URL"},
				{Name: "crawl", Flag: "--crawl", Kind: core.KindBool, Description: "Crawl the target"},
				{Name: "skip_dom", Flag: "--skip-dom", Kind: core.KindBool, Description: "Skip DOM checks"},
			},
			Fixed:          []string{"--skip"},
			Parse:          normalizer.Lines{},
			Exit:           core.ExitZero(),
			TargetOption:   "url",
			DefaultTimeout: 10 * time.Minute,
		},
		{
			Name:        core.ToolAmass,
			MCPName:     "amass_wrapper",
			Description: "Enumerate subdomains with amass",
			Category:    "osint",
			Binary:      "amass",
			Prefix:      []string{"enum"},
			Options: []core.OptionSpec{
				{Name: "domain", Flag: "-d", Kind: core.KindDomain, Required: true, Description: "Root domain"},
				{Name: "passive", Flag: "-passive", Kind: core.KindBool, Description: "Passive enumeration only"},
			},
			Parse:          normalizer.Lines{},
			Reduce:         reduceAmass,
			Exit:           core.ExitZero(),
			TargetOption:   "domain",
			DefaultTimeout: 30 * time.Minute,
		},
		{
			Name:        core.ToolDirsearch,
			MCPName:     "dirsearch_wrapper",
			Description: "Brute force web paths with dirsearch",
			Category:    "content-discovery",
			Binary:      "dirsearch",
			Options: []core.OptionSpec{
				{Name: "url", Flag: "-u", Required: true, Description: "Target URL"},
				{Name: "extensions", Flag: "-e", Kind: core.KindJoined, Description: "Extensions to append"},
				{Name: "wordlist", Flag: "-w", Description: "Wordlist path"},
				{Name: "threads", Flag: "-t", Kind: core.KindInt, Description: "Concurrent threads"},
			},
			Fixed:          []string{"-q", "--no-color"},
			Parse:          normalizer.MustPattern(dirsearchPattern, "status"),
			Exit:           core.ExitZero(),
			TargetOption:   "url",
			DefaultTimeout: 15 * time.Minute,
		},
		{
			Name:        core.ToolGospider,
			MCPName:     "gospider_scan",
			Aliases:     []string{"gospider_filtered_scan"},
			Description: "Crawl a site with gospider, optionally filtering URLs by extension or response length",
			Category:    "crawler",
			Binary:      "gospider",
			Options: []core.OptionSpec{
				{Name: "target", Flag: "-s", Required: true, Description: "Site to crawl"},
				{Name: "depth", Flag: "-d", Kind: core.KindInt, Default: 3, Description: "Crawl depth"},
				{Name: "concurrent", Flag: "-c", Kind: core.KindInt, Default: 10, Description: "Concurrent requests"},
				{Name: "timeout", Flag: "-t", Kind: core.KindInt, Default: 10, Description: "Request timeout in seconds"},
				{Name: "user_agent", Flag: "-u", Description: "User agent"},
				{Name: "headers", Flag: "-H", Kind: core.KindList, Description: "Extra request headers"},
				{Name: "include_subs", Flag: "--subs", Kind: core.KindBool, Description: "Include subdomains"},
				{Name: "include_other_source", Flag: "--other-source", Kind: core.KindBool, Description: "Include archive.org and similar sources"},
				outputFormatOption(),
				{Name: "extensions", Kind: core.KindList, Style: core.StyleLocal, Description: "Keep only URLs with these extensions"},
				{Name: "exclude_extensions", Kind: core.KindList, Style: core.StyleLocal, Description: "Drop URLs with these extensions"},
				{Name: "filter_length", Kind: core.KindInt, Style: core.StyleLocal, Description: "Drop URLs with this response length"},
			},
			FormatOption: "output_format",
			Formats: map[string]core.FormatSpec{
				// gospider 会在 JSON 之间夹杂日志行
				"json": {Args: []string{"--json"}, Parse: normalizer.JSONLines{SkipInvalid: true}},
				"text": {Parse: normalizer.Lines{}},
			},
			Reduce:         reduceGospider,
			Exit:           core.ExitZero(),
			TargetOption:   "target",
			DefaultTimeout: 10 * time.Minute,
		},
		{
			Name:        core.ToolArjun,
			MCPName:     "arjun_scan",
			Aliases:     []string{"arjun_custom_parameter_scan"},
			Description: "Discover hidden HTTP parameters with arjun",
			Category:    "parameter",
			Binary:      "arjun",
			Options: []core.OptionSpec{
				{Name: "url", Flag: "-u", Required: true, Description: "Target URL"},
				{
					Name: "method", Flag: "-m", Kind: core.KindEnum, Default: "GET", Upper: true,
					Choices:     []string{"GET", "POST", "JSON", "XML"},
					Description: "Request method",
				},
				{Name: "wordlist", Flag: "-w", Description: "Parameter wordlist"},
				{Name: "headers", Flag: "-H", Kind: core.KindList, Description: "Extra request headers"},
				{Name: "data", Flag: "-d", Description: "Request body"},
				{Name: "delay", Flag: "--delay", Kind: core.KindInt, Description: "Delay between requests in seconds"},
				{Name: "timeout", Flag: "-t", Kind: core.KindInt, Default: 10, Description: "Request timeout in seconds"},
				{Name: "threads", Flag: "--threads", Kind: core.KindInt, Default: 25, Description: "Concurrent threads"},
				{Name: "stable", Flag: "--stable", Kind: core.KindBool, Description: "Stable mode (slower, fewer false positives)"},
				outputFormatOption(),
				{Name: "custom_params", Kind: core.KindList, Style: core.StyleLocal, Description: "Parameters to report on explicitly"},
			},
			FormatOption: "output_format",
			Formats: map[string]core.FormatSpec{
				"json": {Args: []string{"-oJ", "-"}, Parse: normalizer.JSONLines{SkipInvalid: true}},
				"text": {Args: []string{"-oT", "-"}, Parse: normalizer.Lines{}},
			},
			Reduce:         reduceArjun,
			Exit:           core.ExitZero(),
			TargetOption:   "url",
			DefaultTimeout: 10 * time.Minute,
		},
		{
			Name:        core.ToolIPInfo,
			MCPName:     "ipinfo_wrapper",
			Description: "Look up IP address information from ipinfo.io",
			Category:    "osint",
			// HTTP 后端，Binary 只用于 argv 和日志
			Binary:  "ipinfo",
			Backend: core.BackendHTTP,
			Options: []core.OptionSpec{
				{Name: "ip", Style: core.StylePositional, Description: "IP address, empty for the caller's own address"},
			},
			Parse:          normalizer.JSONDocument{},
			Exit:           core.ExitZero(),
			TargetOption:   "ip",
			DefaultTimeout: 30 * time.Second,
		},
	}
}
