package dialogflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hitoshi/keepingvoice/internal/conversation"
	"github.com/hitoshi/keepingvoice/internal/fulfillment"
	"github.com/hitoshi/keepingvoice/internal/model"
)

const (
	// MaxRequestSize はWebhookリクエストボディの最大サイズ。
	MaxRequestSize = 1 << 20

	verifiedStatus  = "VERIFIED"
	optionArgument  = "OPTION"
	optionIntent    = "actions.intent.OPTION"
	optionValueType = "type.googleapis.com/google.actions.v2.OptionValueSpec"
)

// Decode はWebhookRequestを読み取る。未知のフィールドは無視する。
func Decode(r io.Reader) (*WebhookRequest, error) {
	var req WebhookRequest
	dec := json.NewDecoder(io.LimitReader(r, MaxRequestSize))
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, model.NewInvalidPayloadError("リクエストボディが空です")
		}
		return nil, model.NewInvalidPayloadError(err.Error())
	}
	return &req, nil
}

// Turn はリクエストを会話ターンに変換する。
// 2番目の戻り値はインテント名が既知かどうかを表す。
// セッションIDまたはインテント名がない場合は*model.APIErrorを返す。
func (req *WebhookRequest) Turn() (fulfillment.Turn, bool, error) {
	if req.Session == "" {
		return fulfillment.Turn{}, false, model.NewMissingSessionError()
	}
	name := req.QueryResult.Intent.DisplayName
	if name == "" {
		return fulfillment.Turn{}, false, model.NewMissingIntentError()
	}

	intent, known := fulfillment.ParseIntent(name)
	user := req.OriginalDetectIntentRequest.Payload.User
	return fulfillment.Turn{
		SessionID: req.Session,
		User: fulfillment.User{
			ID:          user.UserID,
			Verified:    user.UserVerificationStatus == verifiedStatus,
			AccessToken: user.AccessToken,
		},
		Intent:    intent,
		OptionKey: req.optionKey(),
	}, known, nil
}

// optionKey はリスト選択で選ばれたキーを返す。
// ペイロードのOPTION引数を優先し、なければqueryResult.parametersを参照する。
func (req *WebhookRequest) optionKey() string {
	for _, input := range req.OriginalDetectIntentRequest.Payload.Inputs {
		for _, arg := range input.Arguments {
			if arg.Name == optionArgument && arg.TextValue != "" {
				return arg.TextValue
			}
		}
	}
	if v, ok := req.QueryResult.Parameters[optionArgument].(string); ok {
		return v
	}
	return ""
}

// Encode は応答をWebhookResponseに変換する。
// コンテキスト名はセッションIDを接頭辞とした完全名にする。
func Encode(session string, resp conversation.Response) WebhookResponse {
	google := GooglePayload{
		ExpectUserResponse: resp.ExpectsUserResponse(),
		RichResponse: RichResponse{
			Items: make([]RichItem, 0, len(resp.Prompts)),
		},
	}
	for _, prompt := range resp.Prompts {
		google.RichResponse.Items = append(google.RichResponse.Items, RichItem{
			SimpleResponse: &SimpleResponse{TextToSpeech: prompt},
		})
	}

	// 会話を終了する応答にはサジェストと選択リストを付けない
	if resp.ExpectsUserResponse() {
		for _, s := range resp.Suggestions {
			google.RichResponse.Suggestions = append(google.RichResponse.Suggestions, Suggestion{Title: s})
		}
		if resp.List != nil {
			google.SystemIntent = listSelectIntent(resp.List)
		}
	}

	out := WebhookResponse{
		FulfillmentText: strings.Join(resp.Prompts, " "),
		Payload:         &ResponsePayload{Google: google},
	}
	for _, c := range resp.Contexts {
		out.OutputContexts = append(out.OutputContexts, Context{
			Name:          ContextName(session, c.Name),
			LifespanCount: c.Lifespan,
		})
	}
	return out
}

func listSelectIntent(list *conversation.SelectionList) *SystemIntent {
	items := make([]ListSelectItem, len(list.Items))
	for i, item := range list.Items {
		items[i] = ListSelectItem{
			OptionInfo: OptionInfo{Key: item.Key},
			Title:      item.Title,
		}
	}
	return &SystemIntent{
		Intent: optionIntent,
		Data: OptionValueSpec{
			Type:       optionValueType,
			ListSelect: &ListSelect{Title: list.Title, Items: items},
		},
	}
}

// ContextName はセッション配下のコンテキストの完全名を返す。
// Dialogflowのコンテキストidは小文字で扱われる。
func ContextName(session, name string) string {
	return fmt.Sprintf("%s/contexts/%s", session, strings.ToLower(name))
}
