// Package main is a small operator tool that publishes one HttpRequest
// envelope to the input topic, for exercising the generic HTTP worker
// end to end.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/arc-self/push-gateway/internal/config"
	"github.com/arc-self/push-gateway/internal/events"
)

func main() {
	var (
		uri       = flag.String("uri", "http://localhost:8080/", "request URI")
		method    = flag.String("method", "GET", "request method")
		body      = flag.String("body", "", "request body")
		timeoutMS = flag.Uint64("timeout", 2000, "request timeout in milliseconds")
		headers   headerFlags
	)
	flag.Var(&headers, "header", "request header as name=value, repeatable")
	flag.Parse()

	cfg, err := config.Load("http_requester")
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	correlationID := uuid.NewString()

	request := events.HTTPRequest{
		RequestType:   events.HTTPVerb(strings.ToUpper(*method)),
		URI:           *uri,
		Headers:       headers.values,
		Body:          *body,
		Timeout:       *timeoutMS,
		CorrelationID: correlationID,
	}

	value, err := events.Encode(
		events.NewHeader(events.TypeHTTPRequest, "sendreq", correlationID),
		request,
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, "encode:", err)
		os.Exit(1)
	}

	writer := &kafkago.Writer{
		Addr:  kafkago.TCP(cfg.Kafka.BrokerList()...),
		Topic: cfg.Kafka.InputTopic,
	}
	defer writer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := writer.WriteMessages(ctx, kafkago.Message{Value: value}); err != nil {
		fmt.Fprintln(os.Stderr, "publish:", err)
		os.Exit(1)
	}

	fmt.Printf("published %s %s correlation_id=%s\n", request.RequestType, request.URI, correlationID)
}

// headerFlags collects repeated -header name=value flags.
type headerFlags struct {
	values map[string]string
}

func (h *headerFlags) String() string {
	pairs := make([]string, 0, len(h.values))
	for k, v := range h.values {
		pairs = append(pairs, k+"="+v)
	}
	return strings.Join(pairs, ",")
}

func (h *headerFlags) Set(value string) error {
	name, val, ok := strings.Cut(value, "=")
	if !ok {
		return fmt.Errorf("header %q is not name=value", value)
	}
	if h.values == nil {
		h.values = make(map[string]string)
	}
	h.values[name] = val
	return nil
}
