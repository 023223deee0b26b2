package utils

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

var sesClient *ses.Client

// InitMailer sets up SES for registration emails. Optional: when SES_EMAIL
// is unset registration simply skips the mail.
func InitMailer() {
	if os.Getenv("SES_EMAIL") == "" {
		log.Println("SES_EMAIL not set, registration emails disabled")
		return
	}

	cfg, err := config.LoadDefaultConfig(context.TODO(), config.WithRegion(os.Getenv("AWS_REGION")))
	if err != nil {
		log.Fatalf("AWS config load failed: %v", err)
	}
	sesClient = ses.NewFromConfig(cfg)
}

// generic SES sender
func sendEmail(to string, subject string, body string) error {
	if sesClient == nil {
		return nil
	}

	input := &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(subject),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(body),
				},
			},
		},
		Source: aws.String(os.Getenv("SES_EMAIL")),
	}

	_, err := sesClient.SendEmail(context.TODO(), input)
	if err != nil {
		log.Printf("SES send error: %v", err)
		return fmt.Errorf("email send failed: %v", err)
	}
	return nil
}

// SendWelcomeEmail greets a newly registered account.
func SendWelcomeEmail(to string, name string) error {
	if name == "" {
		name = to
	}
	subject := "Welcome to FoodLens"
	body := fmt.Sprintf("Hi %s,\n\nYour FoodLens account is ready. Snap a photo of your next meal to start logging.\n", name)
	return sendEmail(to, subject, body)
}
