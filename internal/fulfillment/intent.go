package fulfillment

// Intent は分類済みのユーザーインテント。
// 未知のインテント名はIntentFallbackとして扱う。
type Intent int

const (
	IntentFallback Intent = iota
	IntentWelcome
	IntentSelectOrganisation
	IntentStartWorkTimer
	IntentStartBreakTimer
	IntentStopWorkTimer
)

var intentNames = map[Intent]string{
	IntentFallback:           "Fallback",
	IntentWelcome:            "Welcome",
	IntentSelectOrganisation: "SelectOrganisation",
	IntentStartWorkTimer:     "StartWorkTimer",
	IntentStartBreakTimer:    "StartBreakTimer",
	IntentStopWorkTimer:      "StopWorkTimer",
}

// String はインテント名を返す。メトリクスのラベルにも使用する。
func (i Intent) String() string {
	if name, ok := intentNames[i]; ok {
		return name
	}
	return "unknown"
}

// Intents は既知のインテントをすべて返す。
func Intents() []Intent {
	return []Intent{
		IntentFallback,
		IntentWelcome,
		IntentSelectOrganisation,
		IntentStartWorkTimer,
		IntentStartBreakTimer,
		IntentStopWorkTimer,
	}
}

// ParseIntent はインテント名を解析する。
// 既知の名前でない場合はIntentFallbackとfalseを返す。
func ParseIntent(name string) (Intent, bool) {
	for intent, n := range intentNames {
		if n == name {
			return intent, true
		}
	}
	return IntentFallback, false
}
