package paramstore

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"
)

type fakeSSM struct {
	out     *ssm.GetParameterOutput
	err     error
	lastIn  *ssm.GetParameterInput
	invoked int
}

func (f *fakeSSM) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.invoked++
	f.lastIn = in
	return f.out, f.err
}

func paramOutput(value string) *ssm.GetParameterOutput {
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{Value: &value}}
}

func TestNew_NilAPI(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestGetParameter_HappyPath(t *testing.T) {
	api := &fakeSSM{out: paramOutput("secret-value")}
	c, err := New(api)
	require.NoError(t, err)

	v, err := c.GetParameter(context.Background(), "/help-assistant/gemini-api-key")
	require.NoError(t, err)
	require.Equal(t, "secret-value", v)
	require.Equal(t, "/help-assistant/gemini-api-key", *api.lastIn.Name)
	require.True(t, *api.lastIn.WithDecryption, "secrets must be fetched decrypted")
}

func TestGetParameter_TrimsName(t *testing.T) {
	api := &fakeSSM{out: paramOutput("v")}
	c, err := New(api)
	require.NoError(t, err)

	_, err = c.GetParameter(context.Background(), "  /help-assistant/gemini-api-key  ")
	require.NoError(t, err)
	require.Equal(t, "/help-assistant/gemini-api-key", *api.lastIn.Name)
}

func TestGetParameter_EmptyName(t *testing.T) {
	api := &fakeSSM{out: paramOutput("v")}
	c, err := New(api)
	require.NoError(t, err)

	_, err = c.GetParameter(context.Background(), "   ")
	require.Error(t, err)
	require.Zero(t, api.invoked)
}

func TestGetParameter_APIError(t *testing.T) {
	api := &fakeSSM{err: errors.New("access denied")}
	c, err := New(api)
	require.NoError(t, err)

	_, err = c.GetParameter(context.Background(), "/name")
	require.Error(t, err)
	require.Contains(t, err.Error(), "access denied")
}

func TestGetParameter_MissingValue(t *testing.T) {
	api := &fakeSSM{out: &ssm.GetParameterOutput{}}
	c, err := New(api)
	require.NoError(t, err)

	_, err = c.GetParameter(context.Background(), "/name")
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing value")
}
