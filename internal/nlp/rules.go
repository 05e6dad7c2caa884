package nlp

import (
	"regexp"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/tools"
	"github.com/CodeMonkeyCybersecurity/sharingan/pkg/types"
)

const (
	ruleConfidence     = 0.95
	systemConfidence   = 0.90
	urlGuessConfidence = 0.50
	fallbackConfidence = 0.30
)

// rule maps one query shape to one tool operation. Rules evaluate in
// declaration order against the lowercased query; the first match wins,
// so narrow shapes sit above broad ones.
type rule struct {
	name        string
	category    CommandCategory
	tool        string
	operation   string
	risk        types.RiskLevel
	confidence  float64
	pattern     *regexp.Regexp
	exclude     *regexp.Regexp
	targetKind  tools.TargetKind
	needsTarget bool
}

func (rl rule) matches(q string) bool {
	if rl.exclude != nil && rl.exclude.MatchString(q) {
		return false
	}
	return rl.pattern.MatchString(q)
}

var localMachine = regexp.MustCompile(`ma machine|my machine|cette machine|this machine|localhost`)

// buildRules compiles the dispatch table. Group order is fixed: scan,
// recon, packet, tool audit, web, exploit, system, then the generic
// scan catch all.
func buildRules() []rule {
	return []rule{
		// Network scanning. Same relative order as the nmap catalog
		// routes so tool level and router level dispatch agree.
		{
			name: "quick-scan", category: CategoryNetworkScan,
			tool: "nmap", operation: "quick",
			risk: types.RiskLow, confidence: ruleConfidence,
			pattern:     regexp.MustCompile(`scan rapide|quick scan|fast scan`),
			needsTarget: true,
		},
		{
			name: "stealth-scan", category: CategoryNetworkScan,
			tool: "nmap", operation: "stealth",
			risk: types.RiskMedium, confidence: ruleConfidence,
			pattern:     regexp.MustCompile(`stealth|furtif|silencieux|discret`),
			needsTarget: true,
		},
		{
			name: "port-scan", category: CategoryNetworkScan,
			tool: "nmap", operation: "port",
			risk: types.RiskLow, confidence: ruleConfidence,
			pattern:     regexp.MustCompile(`scanne? les ports|scan ports?|ports? scan|ports? (?:de|d'|of|on|sur)\s|ports? (?:sont )?ouverts? sur\s|ports? (?:are )?open on\s`),
			exclude:     localMachine,
			needsTarget: true,
		},
		{
			name: "os-detection", category: CategoryNetworkScan,
			tool: "nmap", operation: "os",
			risk: types.RiskMedium, confidence: ruleConfidence,
			pattern:     regexp.MustCompile(`quel (?:est l')?os|what os|detect (?:the )?os|os (?:detection|fingerprint)|système d'exploitation|operating system`),
			needsTarget: true,
		},
		{
			name: "service-detection", category: CategoryNetworkScan,
			tool: "nmap", operation: "service",
			risk: types.RiskLow, confidence: ruleConfidence,
			pattern:     regexp.MustCompile(`quels services|what services|detect services|versions? des services|services? (?:qui tournent|running)`),
			needsTarget: true,
		},
		{
			name: "fping-sweep", category: CategoryNetworkScan,
			tool: "fping", operation: "sweep",
			risk: types.RiskSafe, confidence: ruleConfidence,
			pattern:     regexp.MustCompile(`fping.*(?:sweep|range|réseau|network)|(?:sweep|range).*fping`),
			needsTarget: true,
		},
		{
			name: "fping-ping", category: CategoryNetworkScan,
			tool: "fping", operation: "ping",
			risk: types.RiskSafe, confidence: ruleConfidence,
			pattern:     regexp.MustCompile(`fping`),
			needsTarget: true,
		},
		{
			name: "ping-sweep", category: CategoryNetworkScan,
			tool: "nmap", operation: "ping",
			risk: types.RiskSafe, confidence: ruleConfidence,
			pattern:     regexp.MustCompile(`ping sweep|balayage|hôtes actifs|alive hosts|hosts? (?:up|alive)|live hosts|host discovery|machines? actives|découverte d'hôtes`),
			needsTarget: true,
		},
		{
			name: "vuln-scan", category: CategoryNetworkScan,
			tool: "nmap", operation: "vuln",
			risk: types.RiskMedium, confidence: ruleConfidence,
			pattern:     regexp.MustCompile(`vulnérab|vulnerab|failles`),
			exclude:     regexp.MustCompile(`web|site|http`),
			needsTarget: true,
		},
		{
			name: "full-scan", category: CategoryNetworkScan,
			tool: "nmap", operation: "full",
			risk: types.RiskMedium, confidence: ruleConfidence,
			pattern:     regexp.MustCompile(`scan complet|full scan|tous les ports|all (?:the )?ports|complete scan`),
			needsTarget: true,
		},
		{
			name: "arp-scan", category: CategoryNetworkScan,
			tool: "netdiscover", operation: "scan",
			risk: types.RiskMedium, confidence: ruleConfidence,
			pattern:     regexp.MustCompile(`netdiscover|\barp\b`),
			needsTarget: true,
		},

		// Reconnaissance. Native DNS and whois run in process; the dig
		// and whois binaries stay reachable through their own routes.
		{
			name: "whois", category: CategoryReconnaissance,
			tool: "whois-native", operation: "lookup",
			risk: types.RiskSafe, confidence: ruleConfidence,
			pattern:     regexp.MustCompile(`whois|propriétaire|qui possède|who owns|registrar|enregistré par`),
			needsTarget: true,
		},
		{
			name: "ip-lookup", category: CategoryReconnaissance,
			tool: "dnslookup", operation: "resolve",
			risk: types.RiskSafe, confidence: ruleConfidence,
			pattern:     regexp.MustCompile(`trouve l'ip|find the ip|quelle est l'ip|ip (?:address )?(?:de|d'|of)\s|adresse ip|résou|resolve`),
			needsTarget: true,
		},
		{
			name: "mx-lookup", category: CategoryReconnaissance,
			tool: "dnslookup", operation: "mx",
			risk: types.RiskSafe, confidence: ruleConfidence,
			pattern:     regexp.MustCompile(`serveurs? (?:de )?mail|mail servers?|mx records?|\bmx\b`),
			needsTarget: true,
		},
		{
			name: "ns-lookup", category: CategoryReconnaissance,
			tool: "dnslookup", operation: "ns",
			risk: types.RiskSafe, confidence: ruleConfidence,
			pattern:     regexp.MustCompile(`name ?servers?|serveurs? de noms?|ns records?`),
			needsTarget: true,
		},
		{
			name: "txt-lookup", category: CategoryReconnaissance,
			tool: "dnslookup", operation: "txt",
			risk: types.RiskSafe, confidence: ruleConfidence,
			pattern:     regexp.MustCompile(`txt records?|enregistrements txt|\bspf\b`),
			needsTarget: true,
		},
		{
			name: "reverse-dns", category: CategoryReconnaissance,
			tool: "dig", operation: "reverse",
			risk: types.RiskSafe, confidence: ruleConfidence,
			pattern:     regexp.MustCompile(`reverse (?:dns|lookup)|dns inverse|\bptr\b`),
			needsTarget: true,
		},
		{
			name: "wildcard-check", category: CategoryReconnaissance,
			tool: "dnslookup", operation: "wildcard",
			risk: types.RiskSafe, confidence: ruleConfidence,
			pattern:     regexp.MustCompile(`wildcard`),
			needsTarget: true,
		},
		{
			name: "zone-transfer", category: CategoryReconnaissance,
			tool: "dnsrecon", operation: "axfr",
			risk: types.RiskLow, confidence: ruleConfidence,
			pattern:     regexp.MustCompile(`zone transfer|transfert de zone|axfr`),
			needsTarget: true,
		},
		{
			name: "dns-enum", category: CategoryReconnaissance,
			tool: "dnsrecon", operation: "enum",
			risk: types.RiskLow, confidence: ruleConfidence,
			pattern:     regexp.MustCompile(`dns (?:recon|enum)|énumération dns|enumerate dns`),
			needsTarget: true,
		},
		{
			name: "subdomains", category: CategoryReconnaissance,
			tool: "gobuster", operation: "dns",
			risk: types.RiskLow, confidence: ruleConfidence,
			pattern:     regexp.MustCompile(`sous-domaines?|subdomains?|vhosts?`),
			needsTarget: true,
		},
		{
			name: "ldap-probe", category: CategoryReconnaissance,
			tool: "ldap-probe", operation: "probe",
			risk: types.RiskLow, confidence: ruleConfidence,
			pattern:     regexp.MustCompile(`ldap|annuaire`),
			needsTarget: true,
		},

		// Packet capture.
		{
			name: "packet-capture", category: CategoryNetworkScan,
			tool: "tcpdump", operation: "capture",
			risk: types.RiskMedium, confidence: ruleConfidence,
			pattern: regexp.MustCompile(`tcpdump|captures? (?:de |les )?paquets?|capture packets?|sniff|écoute le (?:trafic|réseau)|traffic capture`),
		},

		// Offline audit tools.
		{
			name: "exploit-search", category: CategorySecurityAudit,
			tool: "searchsploit", operation: "search",
			risk: types.RiskSafe, confidence: ruleConfidence,
			pattern:     regexp.MustCompile(`searchsploit|exploits? (?:for|pour|about|concernant)|known (?:vulnerabilit|exploits?)|failles connues|\bcve\b`),
			targetKind:  tools.TargetTerm,
			needsTarget: true,
		},
		{
			name: "hash-identify", category: CategorySecurityAudit,
			tool: "hashid", operation: "identify",
			risk: types.RiskSafe, confidence: ruleConfidence,
			pattern:     regexp.MustCompile(`identif\w* (?:ce |this |the )?hash|what (?:type|kind) of hash|quel type de hash|hash type|type de hash`),
			targetKind:  tools.TargetHash,
			needsTarget: true,
		},
		{
			name: "hashcat-benchmark", category: CategorySecurityAudit,
			tool: "hashcat", operation: "benchmark",
			risk: types.RiskSafe, confidence: ruleConfidence,
			pattern: regexp.MustCompile(`benchmark`),
		},
		{
			name: "hash-crack", category: CategorySecurityAudit,
			tool: "hashcat", operation: "crack",
			risk: types.RiskMedium, confidence: ruleConfidence,
			pattern:     regexp.MustCompile(`hashcat|crack\w* (?:ce |this |the )?hash|casse\w* (?:ce |le )?hash|cracker le hash`),
			targetKind:  tools.TargetHash,
			needsTarget: true,
		},
		{
			name: "john", category: CategorySecurityAudit,
			tool: "john", operation: "crack",
			risk: types.RiskMedium, confidence: ruleConfidence,
			pattern: regexp.MustCompile(`\bjohn\b`),
		},
		{
			name: "crunch", category: CategorySecurityAudit,
			tool: "crunch", operation: "generate",
			risk: types.RiskSafe, confidence: ruleConfidence,
			pattern: regexp.MustCompile(`crunch`),
		},

		// Web.
		{
			name: "dir-enum", category: CategoryWebAttack,
			tool: "dirb", operation: "scan",
			risk: types.RiskMedium, confidence: ruleConfidence,
			pattern:     regexp.MustCompile(`répertoires?|dossiers?|director(?:y|ies)|dirb|content discovery`),
			targetKind:  tools.TargetURL,
			needsTarget: true,
		},
		{
			name: "gobuster-dir", category: CategoryWebAttack,
			tool: "gobuster", operation: "dir",
			risk: types.RiskMedium, confidence: ruleConfidence,
			pattern:     regexp.MustCompile(`gobuster`),
			targetKind:  tools.TargetURL,
			needsTarget: true,
		},
		{
			name: "web-scan", category: CategoryWebAttack,
			tool: "nikto", operation: "scan",
			risk: types.RiskMedium, confidence: ruleConfidence,
			pattern:     regexp.MustCompile(`nikto|web (?:vuln|scan|audit)|website|site web|scanne? le (?:serveur|site)|audit (?:du )?site|vulnérabilités web`),
			targetKind:  tools.TargetURL,
			needsTarget: true,
		},
		{
			name: "sql-injection", category: CategoryWebAttack,
			tool: "sqlmap", operation: "test",
			risk: types.RiskHigh, confidence: ruleConfidence,
			pattern:     regexp.MustCompile(`sql ?injection|injection sql|sqli|sqlmap|injectable`),
			targetKind:  tools.TargetURL,
			needsTarget: true,
		},
		{
			name: "cewl-wordlist", category: CategoryWebAttack,
			tool: "cewl", operation: "generate",
			risk: types.RiskLow, confidence: ruleConfidence,
			pattern:     regexp.MustCompile(`cewl`),
			targetKind:  tools.TargetURL,
			needsTarget: true,
		},
		{
			name: "site-wordlist", category: CategoryWebAttack,
			tool: "wordlist-spider", operation: "generate",
			risk: types.RiskLow, confidence: ruleConfidence,
			pattern:     regexp.MustCompile(`liste de mots|wordlist|mots du site|words from`),
			targetKind:  tools.TargetURL,
			needsTarget: true,
		},
		{
			name: "http-headers", category: CategoryWebAttack,
			tool: "curl", operation: "headers",
			risk: types.RiskSafe, confidence: ruleConfidence,
			pattern:     regexp.MustCompile(`headers?|entêtes?|en-têtes?`),
			targetKind:  tools.TargetURL,
			needsTarget: true,
		},
		{
			name: "http-fetch", category: CategoryWebAttack,
			tool: "curl", operation: "get",
			risk: types.RiskSafe, confidence: ruleConfidence,
			pattern:     regexp.MustCompile(`télécharge|fetch|récupère la page|contenu de la page|page content`),
			targetKind:  tools.TargetURL,
			needsTarget: true,
		},

		// Credentialed attacks and interface changes need explicit
		// confirmation before anything runs.
		{
			name: "password-attack", category: CategorySecurityAudit,
			tool: "hydra", operation: "attack",
			risk: types.RiskHigh, confidence: ruleConfidence,
			pattern:     regexp.MustCompile(`hydra|brute ?force|force brute|password attack|attaque par mot de passe|teste? les mots de passe`),
			needsTarget: true,
		},
		{
			name: "mac-randomize", category: CategorySecurityAudit,
			tool: "macchanger", operation: "random",
			risk: types.RiskHigh, confidence: ruleConfidence,
			pattern: regexp.MustCompile(`(?:change|spoof|randomi[sz]e|masque)\w* (?:my |l'|la |mon )?(?:adresse )?mac|mac aléatoire|nouvelle adresse mac`),
		},
		{
			name: "smb-shares", category: CategorySecurityAudit,
			tool: "smbmap", operation: "shares",
			risk: types.RiskMedium, confidence: ruleConfidence,
			pattern:     regexp.MustCompile(`\bsmb\b|partages?|shares?|samba`),
			needsTarget: true,
		},
		{
			name: "rpc-users", category: CategorySecurityAudit,
			tool: "rpcclient", operation: "users",
			risk: types.RiskMedium, confidence: ruleConfidence,
			pattern:     regexp.MustCompile(`rpcclient|\brpc\b|(?:enum|list)\w* (?:the )?users|utilisateurs d(?:e|u)\s`),
			needsTarget: true,
		},

		// Local system questions.
		{
			name: "kernel-info", category: CategorySystemInfo,
			tool: "uname", operation: "info",
			risk: types.RiskSafe, confidence: systemConfidence,
			pattern: regexp.MustCompile(`kernel|noyau|uname|version (?:de |du )?linux|what linux`),
		},
		{
			name: "listening-ports", category: CategorySystemInfo,
			tool: "netstat", operation: "listening",
			risk: types.RiskSafe, confidence: systemConfidence,
			pattern: regexp.MustCompile(`listening|netstat|à l'écoute|ports? ouverts?|quels ports`),
		},
		{
			name: "connections", category: CategorySystemInfo,
			tool: "netstat", operation: "connections",
			risk: types.RiskSafe, confidence: systemConfidence,
			pattern: regexp.MustCompile(`connexions?|connections?|established`),
		},
		{
			name: "strings-extract", category: CategorySystemInfo,
			tool: "strings", operation: "extract",
			risk: types.RiskSafe, confidence: systemConfidence,
			pattern: regexp.MustCompile(`\bstrings\b|chaînes de caractères|texte d(?:u|ans le) (?:binaire|fichier)`),
		},
		{
			name: "hex-dump", category: CategorySystemInfo,
			tool: "xxd", operation: "dump",
			risk: types.RiskSafe, confidence: systemConfidence,
			pattern: regexp.MustCompile(`\bxxd\b|hex ?dump|hexadécimal`),
		},
		{
			name: "syscall-trace", category: CategorySystemInfo,
			tool: "strace", operation: "attach",
			risk: types.RiskMedium, confidence: systemConfidence,
			pattern: regexp.MustCompile(`strace|syscalls?|appels système`),
		},
		{
			name: "mac-show", category: CategorySystemInfo,
			tool: "macchanger", operation: "show",
			risk: types.RiskSafe, confidence: systemConfidence,
			pattern: regexp.MustCompile(`adresse mac|mac address|show mac|quelle est (?:la|ma) mac`),
		},

		// Bare "scan X" with no other signal defaults to a quick scan.
		{
			name: "generic-scan", category: CategoryNetworkScan,
			tool: "nmap", operation: "quick",
			risk: types.RiskLow, confidence: systemConfidence,
			pattern:     regexp.MustCompile(`\bscanne?s?\b`),
			needsTarget: true,
		},
	}
}
