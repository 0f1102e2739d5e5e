// Command brewlambda serves brew requests as an AWS Lambda function URL.
// The request body is the same JSON accepted by POST /v1/recipes.
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/hammamikhairi/potionbrew/internal/api"
	"github.com/hammamikhairi/potionbrew/internal/app"
	"github.com/hammamikhairi/potionbrew/internal/config"
	"github.com/hammamikhairi/potionbrew/internal/domain"
	"github.com/hammamikhairi/potionbrew/internal/logger"
)

var jsonHeader = map[string]string{
	"Content-Type": "application/json",
}

// The app is built once per container and reused across invocations.
var (
	once   sync.Once
	shared *app.App
	errApp error
)

func load(ctx context.Context) (*app.App, error) {
	once.Do(func() {
		cfg, err := config.FromEnv(os.Getenv)
		if err != nil {
			errApp = err
			return
		}
		shared, errApp = app.New(ctx, cfg, logger.New(cfg.LogLevel, os.Stderr))
	})
	return shared, errApp
}

func handler(ctx context.Context, event events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	a, err := load(ctx)
	if err != nil {
		return errResp(500, "startup failed: "+err.Error())
	}
	return handle(ctx, a, event)
}

func handle(ctx context.Context, a *app.App, event events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	body := event.Body
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return errResp(400, "invalid base64 body")
		}
		body = string(decoded)
	}

	var req domain.RecipeRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return errResp(400, "invalid JSON: "+err.Error())
	}

	out, err := a.Engine.Brew(ctx, req)
	if err != nil {
		code, eb := api.Describe(err)
		respJSON, _ := json.Marshal(eb)
		return events.LambdaFunctionURLResponse{StatusCode: code, Headers: jsonHeader, Body: string(respJSON)}, nil
	}

	respJSON, _ := json.Marshal(struct {
		Found bool `json:"found"`
		*domain.Outcome
	}{out.Found(), out})
	return events.LambdaFunctionURLResponse{StatusCode: 200, Headers: jsonHeader, Body: string(respJSON)}, nil
}

func errResp(code int, msg string) (events.LambdaFunctionURLResponse, error) {
	body, _ := json.Marshal(map[string]string{"error": msg})
	return events.LambdaFunctionURLResponse{StatusCode: code, Headers: jsonHeader, Body: string(body)}, nil
}

func main() {
	lambda.Start(handler)
}
