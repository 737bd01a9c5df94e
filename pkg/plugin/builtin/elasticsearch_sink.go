package builtin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/logflow-dev/logflow/pkg/logevent"
	"github.com/logflow-dev/logflow/pkg/plugin"
)

func init() {
	plugin.RegisterSink("elasticsearch", func() plugin.Sink { return &ElasticsearchSink{} })
}

// ElasticsearchSink writes a batch as one bulk index request, grounded
// on the provisioner's elasticsearch.Config{Addresses,Username,Password,
// APIKey} client construction and on the bulk-request shape used by the
// pack's log_capturer_go ElasticsearchSink.
type ElasticsearchSink struct {
	client *elasticsearch.Client
	index  string
}

func (s *ElasticsearchSink) Name() string { return "elasticsearch:" + s.index }

func (s *ElasticsearchSink) Open(_ context.Context, cfg plugin.Config) error {
	addrs := cfg.GetStringSlice("addresses")
	if len(addrs) == 0 {
		return &plugin.ConfigError{Plugin: "elasticsearch", Msg: "addresses is required"}
	}
	index := cfg.GetString("index", "logs")

	esCfg := elasticsearch.Config{Addresses: addrs}
	if apiKey := cfg.GetString("api_key", ""); apiKey != "" {
		esCfg.APIKey = apiKey
	} else if user := cfg.GetString("username", ""); user != "" {
		esCfg.Username = user
		esCfg.Password = cfg.GetString("password", "")
	}

	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return &plugin.OpenError{Plugin: "elasticsearch", Err: err}
	}
	s.client = client
	s.index = index
	return nil
}

func (s *ElasticsearchSink) Write(ctx context.Context, batch *logevent.Batch) error {
	var buf bytes.Buffer
	for _, evt := range batch.Events() {
		meta := map[string]any{"index": map[string]any{"_index": s.index, "_id": evt.ID.String()}}
		metaJSON, _ := json.Marshal(meta)
		docJSON, err := json.Marshal(eventToMap(evt))
		if err != nil {
			continue
		}
		buf.Write(metaJSON)
		buf.WriteByte('\n')
		buf.Write(docJSON)
		buf.WriteByte('\n')
	}
	if buf.Len() == 0 {
		return nil
	}

	req := esapi.BulkRequest{Body: &buf}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return &plugin.SinkRetryableError{Err: err}
	}
	defer res.Body.Close()

	if res.IsError() {
		return &plugin.SinkRetryableError{Err: fmt.Errorf("elasticsearch bulk request: %s", res.Status())}
	}
	return nil
}

func (s *ElasticsearchSink) Flush(context.Context) error { return nil }
func (s *ElasticsearchSink) Close() error                { return nil }
