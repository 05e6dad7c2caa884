package detector

// categoryOrder fixes the probe and report order. A binary listed under
// several categories resolves to the first one here.
var categoryOrder = []string{
	"network_scanner",
	"web_scanner",
	"vulnerability_scanner",
	"exploitation",
	"password_cracking",
	"wifi",
	"forensic",
	"recon",
	"reverse_engineering",
	"social_engineering",
	"reporting",
	"ai_ml",
	"system",
	"utils",
}

// toolCategories maps each category to the binaries worth probing for.
var toolCategories = map[string][]string{
	"network_scanner": {
		"nmap", "masscan", "netdiscover", "arp-scan", "netcat", "nc",
		"fping", "hping3", "nbtscan", "rustscan",
	},
	"web_scanner": {
		"gobuster", "dirsearch", "dirb", "wfuzz", "ffuf", "nikto",
		"whatweb", "wafw00f", "dalfox", "gf",
	},
	"vulnerability_scanner": {
		"openvas", "nessus", "nexpose", "nikto", "wpscan",
		"joomscan", "droopescan", "cmsmap",
	},
	"exploitation": {
		"msfconsole", "msfvenom", "searchsploit", "sqlmap", "commix",
	},
	"password_cracking": {
		"hydra", "john", "hashcat", "crunch", "cewl", "ophcrack",
	},
	"wifi": {
		"aircrack-ng", "airmon-ng", "airodump-ng", "aireplay-ng",
		"kismet", "wifite",
	},
	"forensic": {
		"volatility", "autopsy", "binwalk", "foremost",
		"scalpel", "bulk_extractor", "yara",
	},
	"recon": {
		"theharvester", "recon-ng", "dnsrecon",
		"whois", "dig", "nslookup", "host",
	},
	"reverse_engineering": {
		"radare2", "ghidra", "objdump", "nm", "strace", "ltrace",
	},
	"social_engineering": {
		"setoolkit", "gophish", "king-phisher",
	},
	"reporting": {
		"dradis", "faraday", "pwndoc", "cherrytree",
	},
	"ai_ml": {
		"tgpt", "ollama", "llama",
	},
	"system": {
		"python3", "pip3", "git", "apt", "curl", "wget",
		"hostname", "uname", "whoami", "bash", "sh", "sudo",
	},
	"utils": {
		"jq", "yq", "tmux", "vim", "grep", "awk",
		"sed", "find", "xargs", "sort", "uniq", "cut",
	},
}

// descriptions covers the tools worth a tailored line; everything else
// gets a generic one from describe.
var descriptions = map[string]string{
	"nmap":         "Network Mapper - port and service scanner",
	"masscan":      "Mass IP/port scanner - high speed sweeps",
	"netdiscover":  "ARP network discovery",
	"gobuster":     "Directory, vhost and DNS brute forcer",
	"ffuf":         "Fast web fuzzer",
	"sqlmap":       "Automatic SQL injection tool",
	"nikto":        "Web server vulnerability scanner",
	"wpscan":       "WordPress vulnerability scanner",
	"hydra":        "Network login brute forcer",
	"john":         "John the Ripper password cracker",
	"hashcat":      "GPU accelerated password recovery",
	"searchsploit": "Exploit-DB offline search",
	"msfconsole":   "Metasploit Framework console",
	"aircrack-ng":  "WiFi key cracking suite",
	"volatility":   "Memory forensics framework",
	"binwalk":      "Firmware analysis and extraction",
	"theharvester": "Email and subdomain OSINT harvester",
	"dnsrecon":     "DNS enumeration and zone transfer checks",
	"whois":        "Domain registration lookup",
	"dig":          "DNS query client",
	"radare2":      "Reverse engineering framework",
	"tgpt":         "Terminal AI assistant",
	"ollama":       "Local LLM runner",
	"git":          "Version control",
	"python3":      "Python interpreter",
	"curl":         "URL transfer client",
}

// capabilities covers tools whose feature set the rest of the system
// cares about; others default to "<category>_tool".
var capabilities = map[string][]string{
	"nmap":         {"port_scan", "service_detection", "os_detection", "script_scan", "network_map"},
	"masscan":      {"fast_scan", "port_scan", "rate_limit"},
	"gobuster":     {"dir_scan", "vhost_scan", "dns_scan", "fuzzing"},
	"sqlmap":       {"sql_injection", "database_dump", "os_shell", "file_read"},
	"nikto":        {"web_scan", "vuln_scan", "header_analysis"},
	"hydra":        {"brute_force", "ssh", "ftp", "http", "smb", "telnet"},
	"john":         {"hash_cracking", "password_recovery", "rule_based"},
	"hashcat":      {"hash_cracking", "gpu", "mask_attack"},
	"searchsploit": {"exploit_search", "cve_lookup", "path_disclosure"},
	"theharvester": {"email_harvest", "subdomain_enum", "host_enum"},
	"aircrack-ng":  {"wifi_crack", "handshake_capture", "monitor_mode"},
	"volatility":   {"memory_dump", "process_analysis", "malware_detection"},
	"msfconsole":   {"exploit", "payload", "post_exploitation", "auxiliary"},
	"tgpt":         {"ai_chat", "code_generation"},
	"git":          {"clone", "commit", "push", "pull"},
	"python3":      {"script_execution", "package_install"},
}

func describe(name string) string {
	if d, ok := descriptions[name]; ok {
		return d
	}
	return name + " - security tool"
}

func capabilitiesFor(name, category string) []string {
	if caps, ok := capabilities[name]; ok {
		return caps
	}
	return []string{category + "_tool"}
}

func categoryFor(name string) string {
	for _, category := range categoryOrder {
		for _, tool := range toolCategories[category] {
			if tool == name {
				return category
			}
		}
	}
	return "unknown"
}
