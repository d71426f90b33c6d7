// Package dialogflow はDialogflow ES v2のWebhook形式と会話ターンの相互変換を提供する。
// 受信側はActions on Googleのペイロードを含むWebhookRequestを想定する。
package dialogflow

// WebhookRequest はDialogflowから送られるフルフィルメント要求。
type WebhookRequest struct {
	ResponseID                  string                      `json:"responseId"`
	Session                     string                      `json:"session"`
	QueryResult                 QueryResult                 `json:"queryResult"`
	OriginalDetectIntentRequest OriginalDetectIntentRequest `json:"originalDetectIntentRequest"`
}

// QueryResult は意図分類の結果。
type QueryResult struct {
	QueryText      string         `json:"queryText"`
	Parameters     map[string]any `json:"parameters"`
	Intent         IntentInfo     `json:"intent"`
	OutputContexts []Context      `json:"outputContexts"`
	LanguageCode   string         `json:"languageCode"`
}

// IntentInfo は分類されたインテント。
type IntentInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// Context は名前付き会話コンテキスト。LifespanCountが0のコンテキストは削除される。
type Context struct {
	Name          string         `json:"name"`
	LifespanCount int            `json:"lifespanCount"`
	Parameters    map[string]any `json:"parameters,omitempty"`
}

// OriginalDetectIntentRequest は呼び出し元プラットフォームの元の要求。
type OriginalDetectIntentRequest struct {
	Source  string         `json:"source"`
	Version string         `json:"version"`
	Payload ActionsPayload `json:"payload"`
}

// ActionsPayload はActions on Googleの会話ペイロード。
type ActionsPayload struct {
	User         ActionsUser         `json:"user"`
	Conversation ActionsConversation `json:"conversation"`
	Inputs       []ActionsInput      `json:"inputs"`
}

// ActionsUser は呼び出しユーザー。
type ActionsUser struct {
	UserID                 string `json:"userId"`
	AccessToken            string `json:"accessToken"`
	UserVerificationStatus string `json:"userVerificationStatus"`
	Locale                 string `json:"locale"`
}

// ActionsConversation はプラットフォーム側の会話情報。
type ActionsConversation struct {
	ConversationID string `json:"conversationId"`
	Type           string `json:"type"`
}

// ActionsInput はユーザー入力と引数。
type ActionsInput struct {
	Intent    string            `json:"intent"`
	Arguments []ActionsArgument `json:"arguments"`
}

// ActionsArgument はユーザー入力の引数。リスト選択ではNameがOPTIONになる。
type ActionsArgument struct {
	Name      string `json:"name"`
	TextValue string `json:"textValue"`
}

// WebhookResponse はDialogflowに返すフルフィルメント応答。
type WebhookResponse struct {
	FulfillmentText string           `json:"fulfillmentText,omitempty"`
	Payload         *ResponsePayload `json:"payload,omitempty"`
	OutputContexts  []Context        `json:"outputContexts,omitempty"`
}

// ResponsePayload はプラットフォーム別の応答ペイロード。
type ResponsePayload struct {
	Google GooglePayload `json:"google"`
}

// GooglePayload はActions on Google向けの応答。
type GooglePayload struct {
	ExpectUserResponse bool          `json:"expectUserResponse"`
	RichResponse       RichResponse  `json:"richResponse"`
	SystemIntent       *SystemIntent `json:"systemIntent,omitempty"`
}

// RichResponse は読み上げ文とサジェストチップ。
type RichResponse struct {
	Items       []RichItem   `json:"items"`
	Suggestions []Suggestion `json:"suggestions,omitempty"`
}

// RichItem はリッチレスポンスの1項目。
type RichItem struct {
	SimpleResponse *SimpleResponse `json:"simpleResponse,omitempty"`
}

// SimpleResponse は読み上げと表示に使う文。
type SimpleResponse struct {
	TextToSpeech string `json:"textToSpeech"`
}

// Suggestion はサジェストチップ。
type Suggestion struct {
	Title string `json:"title"`
}

// SystemIntent はプラットフォームの組み込みインテントの要求。
type SystemIntent struct {
	Intent string          `json:"intent"`
	Data   OptionValueSpec `json:"data"`
}

// OptionValueSpec はactions.intent.OPTIONの引数。
type OptionValueSpec struct {
	Type       string      `json:"@type"`
	ListSelect *ListSelect `json:"listSelect,omitempty"`
}

// ListSelect は選択リスト。
type ListSelect struct {
	Title string           `json:"title,omitempty"`
	Items []ListSelectItem `json:"items"`
}

// ListSelectItem は選択リストの項目。
type ListSelectItem struct {
	OptionInfo OptionInfo `json:"optionInfo"`
	Title      string     `json:"title"`
}

// OptionInfo は項目のキー。選ばれるとOPTION引数として返ってくる。
type OptionInfo struct {
	Key string `json:"key"`
}
