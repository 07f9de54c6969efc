package notification

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSMSClient struct {
	phone  string
	sign   string
	params map[string]string
}

func (f *fakeSMSClient) Send(_ context.Context, phone, sign, template string, params map[string]string) error {
	f.phone, f.sign, f.params = phone, sign, params
	return nil
}

type fakePushClient struct {
	title    string
	audience map[string]interface{}
}

func (f *fakePushClient) Push(_ context.Context, title, content string, audience map[string]interface{}, extras map[string]interface{}) error {
	f.title, f.audience = title, audience
	return nil
}

func TestSendAlertSMS(t *testing.T) {
	cli := &fakeSMSClient{}
	sms := NewContactSMS(ContactSMSConfig{SignName: "SOS911", TemplateCode: "ALERT"}, cli)

	err := sms.SendAlertSMS(context.Background(), "+593999000111", "FIRE", "SOS-03F2", "https://maps.google.com/?q=-0.2,-78.5")
	require.NoError(t, err)
	assert.Equal(t, "+593999000111", cli.phone)
	assert.Equal(t, "SOS911", cli.sign)
	assert.Equal(t, "SOS-03F2", cli.params["ref"])
	assert.Equal(t, "FIRE", cli.params["category"])
}

func TestSendAlertSMSWithoutClient(t *testing.T) {
	sms := NewContactSMS(ContactSMSConfig{}, nil)
	assert.Error(t, sms.SendAlertSMS(context.Background(), "+593999000111", "SOS", "SOS-0001", ""))
}

func TestPushToContacts(t *testing.T) {
	cli := &fakePushClient{}
	push := NewContactPush(PushConfig{AppKey: "k"}, cli)

	err := push.PushToContacts(context.Background(), []string{"u1", "u2"}, "Alerta FIRE", "Ref SOS-03F2", nil)
	require.NoError(t, err)
	assert.Equal(t, "Alerta FIRE", cli.title)
	assert.Equal(t, []string{"u1", "u2"}, cli.audience["alias"])
}

func TestPushToContactsWithoutClient(t *testing.T) {
	push := NewContactPush(PushConfig{}, nil)
	assert.Error(t, push.PushToContacts(context.Background(), []string{"u1"}, "t", "c", nil))
}
