package integration_test

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/stripe/stripe-go/v82"
	"github.com/testcontainers/testcontainers-go"

	"github.com/cinetick/cinetick/internal/app"
	"github.com/cinetick/cinetick/internal/domain"
	"github.com/cinetick/cinetick/internal/mailer"
	"github.com/cinetick/cinetick/internal/mocks"
)

const (
	dbName         = "cinetick"
	dbUser         = "test_user"
	dbPassword     = "test_password"
	dbImageName    = "postgres:17-alpine"
	cacheImageName = "redis:7"

	webhookSecret = "whsec_test_secret"
)

// fakePaymentProvider hands out a unique checkout session per call without
// talking to Stripe.
type fakePaymentProvider struct {
	counter atomic.Int64
}

func (f *fakePaymentProvider) CreateCheckoutSession(
	reservation *domain.Reservation,
	show *domain.ShowInstance) (*stripe.CheckoutSession, error) {

	n := f.counter.Add(1)

	return &stripe.CheckoutSession{
		ID:  fmt.Sprintf("cs_test_%d", n),
		URL: fmt.Sprintf("https://checkout.stripe.example/pay/cs_test_%d", n),
	}, nil
}

type TestApp struct {
	App             *app.Application
	PaymentProvider *fakePaymentProvider
	Mailer          *mailer.MockMailer
	Publisher       *mocks.MockPublisher
}

type BaseSuite struct {
	suite.Suite
	app            *TestApp
	dbContainer    *PostgresContainer
	cacheContainer *RedisContainer
}

func (s *BaseSuite) SetupSuite() {
	ctx := context.Background()

	postgresContainer, err := getDbContainer(ctx)
	if err != nil {
		log.Printf("failed to start container: %s", err)
		return
	}

	redisContainer, err := getCacheContainer(ctx)
	if err != nil {
		log.Printf("failed to start container: %s", err)
		return
	}

	s.dbContainer = postgresContainer
	s.cacheContainer = redisContainer

	cfg := app.Config{
		Port: 3000,
		Env:  "test",
		DB: app.DBConfig{
			DSN:          postgresContainer.ConnectionString,
			MaxOpenConns: 25,
			MaxIdleTime:  2 * time.Minute,
		},
		Redis: app.RedisConfig{
			URL:          redisContainer.ConnectionString,
			MaxOpenConns: 10,
			MaxIdleConns: 10,
			MaxIdleTime:  2 * time.Minute,
		},
		Stripe: app.StripeConfig{
			WebhookSecret: webhookSecret,
		},
	}

	testApp := &TestApp{
		PaymentProvider: &fakePaymentProvider{},
		Mailer:          mailer.NewMockMailer(),
		Publisher:       new(mocks.MockPublisher),
	}

	application, err := app.New(cfg,
		app.WithPaymentProvider(testApp.PaymentProvider),
		app.WithMailer(testApp.Mailer),
		app.WithPublisher(testApp.Publisher),
	)
	if err != nil {
		log.Printf("cannot initialize app: %s", err)
		return
	}

	testApp.App = application
	s.app = testApp
}

func (s *BaseSuite) TearDownSuite() {
	if s.app != nil && s.app.App != nil {
		s.app.App.Close()
	}
	if s.dbContainer != nil {
		if err := testcontainers.TerminateContainer(s.dbContainer.Container.Container); err != nil {
			log.Printf("failed to terminate container: %s", err)
		}
	}
	if s.cacheContainer != nil {
		if err := testcontainers.TerminateContainer(s.cacheContainer.Container); err != nil {
			log.Printf("failed to terminate container: %s", err)
		}
	}
}
