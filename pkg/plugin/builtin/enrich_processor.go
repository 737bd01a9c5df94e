package builtin

import (
	"context"
	"fmt"
	"net"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/oschwald/geoip2-golang"
	"github.com/ua-parser/uap-go/uaparser"

	"github.com/logflow-dev/logflow/pkg/logevent"
	"github.com/logflow-dev/logflow/pkg/plugin"
)

func init() {
	plugin.RegisterProcessor("enrich", func() plugin.Processor { return &EnrichProcessor{} })
}

// EnrichProcessor adds derived fields via one of four sub-modes: lookup,
// geoip, useragent, dns. See SPEC_FULL.md §4.2.
type EnrichProcessor struct {
	mode         string
	sourceField  string
	targetField  string
	defaultValue any

	lookupTable map[string]any

	geoDB *geoip2.Reader

	uaParser *uaparser.Parser

	dnsCache   *lru.Cache[string, string]
	dnsTimeout dnsResolveTimeout
}

type dnsResolveTimeout struct{ ms int }

func (p *EnrichProcessor) Open(cfg plugin.Config) error {
	mode, err := cfg.RequireString("mode")
	if err != nil {
		return err
	}
	p.mode = mode
	p.sourceField = cfg.GetString("source_field", "")
	p.targetField = cfg.GetString("target_field", "")
	p.defaultValue = cfg["default_value"]

	switch mode {
	case "lookup":
		table := cfg.GetMap("lookup_table")
		if table == nil {
			return &plugin.ConfigError{Plugin: "enrich", Msg: "lookup mode requires lookup_table"}
		}
		p.lookupTable = table
		if p.sourceField == "" {
			return &plugin.ConfigError{Plugin: "enrich", Msg: "lookup mode requires source_field"}
		}
	case "geoip":
		dbPath, err := cfg.RequireString("database_path")
		if err != nil {
			return err
		}
		db, err := geoip2.Open(dbPath)
		if err != nil {
			return &plugin.OpenError{Plugin: "enrich/geoip", Err: err}
		}
		p.geoDB = db
		if p.sourceField == "" {
			return &plugin.ConfigError{Plugin: "enrich", Msg: "geoip mode requires source_field"}
		}
	case "useragent":
		regexesPath := cfg.GetString("regexes_path", "")
		var parser *uaparser.Parser
		if regexesPath != "" {
			parser, err = uaparser.New(regexesPath)
			if err != nil {
				return &plugin.OpenError{Plugin: "enrich/useragent", Err: err}
			}
		} else {
			parser = uaparser.NewFromSaved()
		}
		p.uaParser = parser
		if p.sourceField == "" {
			return &plugin.ConfigError{Plugin: "enrich", Msg: "useragent mode requires source_field"}
		}
	case "dns":
		capacity := cfg.GetInt("cache_size", 10000)
		cache, err := lru.New[string, string](capacity)
		if err != nil {
			return &plugin.ConfigError{Plugin: "enrich", Msg: "invalid dns cache_size: " + err.Error()}
		}
		p.dnsCache = cache
		p.dnsTimeout = dnsResolveTimeout{ms: cfg.GetInt("timeout_ms", 500)}
		if p.sourceField == "" {
			return &plugin.ConfigError{Plugin: "enrich", Msg: "dns mode requires source_field"}
		}
	default:
		return &plugin.ConfigError{Plugin: "enrich", Msg: fmt.Sprintf("unknown mode %q", mode)}
	}
	return nil
}

func (p *EnrichProcessor) Process(ctx context.Context, evt *logevent.LogEvent) ([]*logevent.LogEvent, error) {
	switch p.mode {
	case "lookup":
		return p.processLookup(evt)
	case "geoip":
		return p.processGeoIP(evt)
	case "useragent":
		return p.processUserAgent(evt)
	case "dns":
		return p.processDNS(ctx, evt)
	default:
		return []*logevent.LogEvent{evt}, nil
	}
}

func (p *EnrichProcessor) processLookup(evt *logevent.LogEvent) ([]*logevent.LogEvent, error) {
	key, ok := evt.GetString(p.sourceField)
	target := p.targetFieldOr("enrichment")
	if !ok {
		if p.defaultValue != nil {
			evt.Set(target, p.defaultValue)
		}
		return []*logevent.LogEvent{evt}, nil
	}
	if v, found := p.lookupTable[key]; found {
		evt.Set(target, v)
	} else if p.defaultValue != nil {
		evt.Set(target, p.defaultValue)
	}
	return []*logevent.LogEvent{evt}, nil
}

func (p *EnrichProcessor) processGeoIP(evt *logevent.LogEvent) ([]*logevent.LogEvent, error) {
	ipStr, ok := evt.GetString(p.sourceField)
	if !ok {
		return []*logevent.LogEvent{evt}, nil // miss: pass through unchanged; no miss counter is incremented
	}
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return []*logevent.LogEvent{evt}, nil
	}
	record, err := p.geoDB.City(ip)
	if err != nil {
		return []*logevent.LogEvent{evt}, nil
	}
	target := p.targetFieldOr("geo")
	evt.Set(target+".country", record.Country.Names["en"])
	city := ""
	if len(record.City.Names) > 0 {
		city = record.City.Names["en"]
	}
	evt.Set(target+".city", city)
	evt.Set(target+".lat", record.Location.Latitude)
	evt.Set(target+".lon", record.Location.Longitude)
	return []*logevent.LogEvent{evt}, nil
}

func (p *EnrichProcessor) processUserAgent(evt *logevent.LogEvent) ([]*logevent.LogEvent, error) {
	uaStr, ok := evt.GetString(p.sourceField)
	if !ok || uaStr == "" {
		return []*logevent.LogEvent{evt}, nil
	}
	client := p.uaParser.Parse(uaStr)
	target := p.targetFieldOr("user_agent")
	evt.Set(target+".browser", client.UserAgent.Family)
	evt.Set(target+".os", client.Os.Family)
	device := client.Device.Family
	if device == "Other" {
		device = ""
	}
	evt.Set(target+".device", device)
	return []*logevent.LogEvent{evt}, nil
}

func (p *EnrichProcessor) processDNS(ctx context.Context, evt *logevent.LogEvent) ([]*logevent.LogEvent, error) {
	ipStr, ok := evt.GetString(p.sourceField)
	if !ok {
		return []*logevent.LogEvent{evt}, nil
	}
	target := p.targetFieldOr("hostname")

	if host, found := p.dnsCache.Get(ipStr); found {
		evt.Set(target, host)
		return []*logevent.LogEvent{evt}, nil
	}

	host, err := resolvePTR(ctx, ipStr, p.dnsTimeout.ms)
	if err != nil {
		return []*logevent.LogEvent{evt}, nil // reverse-resolve miss: pass through
	}
	p.dnsCache.Add(ipStr, host)
	evt.Set(target, host)
	return []*logevent.LogEvent{evt}, nil
}

func (p *EnrichProcessor) targetFieldOr(def string) string {
	if p.targetField != "" {
		return p.targetField
	}
	return def
}

func (p *EnrichProcessor) Close() error {
	if p.geoDB != nil {
		return p.geoDB.Close()
	}
	return nil
}
