package notify

import (
	"context"
	"errors"
	"net/http"

	"github.com/LerianStudio/lib-payscore/payscore/log"
	"github.com/LerianStudio/lib-payscore/payscore/opentelemetry"
	"github.com/gofiber/fiber/v2"
)

// Reply is the acknowledgement body the gateway expects.
type Reply struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HandlerFunc processes a verified notification. A returned error makes the
// gateway redeliver.
type HandlerFunc func(ctx context.Context, n *Notification) error

// Handler builds a Parser and returns a fiber handler serving it.
func Handler(verifier Verifier, apiV3Key []byte, fn HandlerFunc, opts ...Option) (fiber.Handler, error) {
	if fn == nil {
		return nil, errors.New("notify: nil handler func")
	}

	p, err := NewParser(verifier, apiV3Key, opts...)
	if err != nil {
		return nil, err
	}

	return p.Handler(fn), nil
}

// Handler returns a fiber handler that parses the callback and passes it to fn.
func (p *Parser) Handler(fn HandlerFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := opentelemetry.ExtractHTTPContext(c)

		header := http.Header{}
		for k, values := range c.GetReqHeaders() {
			for _, v := range values {
				header.Add(k, v)
			}
		}

		body := append([]byte(nil), c.Body()...)

		n, err := p.Parse(ctx, header, body)

		switch {
		case errors.Is(err, ErrVerification):
			return fail(c, fiber.StatusUnauthorized, "签名验证失败")
		case err != nil:
			return fail(c, fiber.StatusBadRequest, "通知解析失败")
		}

		if err := fn(ctx, n); err != nil {
			log.SafeError(p.logger, ctx, "notification handler failed", err, p.production)

			return fail(c, fiber.StatusInternalServerError, "处理失败")
		}

		return c.Status(fiber.StatusOK).JSON(Reply{Code: "SUCCESS", Message: "成功"})
	}
}

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(Reply{Code: "FAIL", Message: message})
}
