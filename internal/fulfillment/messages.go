package fulfillment

import "fmt"

// SelectionContext は組織選択中であることを示す会話コンテキスト名。
const SelectionContext = "OrganisationSelection"

const apologyPrefix = "Sorry er is iets fout gegaan. "

const (
	msgOrganisationsUnavailable = apologyPrefix + "Ik kon de Keeping-organisaties niet ophalen."
	msgNoOrganisations          = apologyPrefix + "Ik kon geen enekele Keeping-organisatie ophalen. Misschien moet je er eerst een aanmaken."
	msgSelectOrganisation       = "Eerst moet ik weten met welke Keeping-organisatie je wilt werken."
	msgSelectionListTitle       = "Kies een Keeping-organisatie:"
	msgSelectFailed             = apologyPrefix + "Ik kon deze Keeping-organisatie niet selecteren."

	msgStopFetchFailed = apologyPrefix + "Ik kon je lopende tijdregistratie niet ophalen."
	// 停止の失敗も「hervatten」の文言で伝える。
	msgStopFailed      = apologyPrefix + "Ik kon je laatste tijdregistratie niet hervatten."
	msgStopped         = "Je tijdregistratie is gestopt."
	msgNothingOngoing  = "Mooi, ik hoef niets te doen. Je hebt geen lopende tijdregistratie."

	msgWelcomeShort = "Hoi, kan ik je helpen met jouw tijdregistraties?"
	msgFallback     = "Sorry ik begrijp je niet. Je kan mij vragen naar je tijdregistraties bij Keeping."
)

const msgWelcomeLong = "Hoi, je praat met Keeping. " +
	"Je kan mij vertellen dat je bent gestart, of bent gestopt met werken. " +
	"Ik zal er dan voor zorgen dat jouw tijdregistraties goed worden bijgewerkt."

// quickReplies は固定のサジェストチップ。
var quickReplies = []string{"Ik begin", "Ik ben klaar", "Nu even pauze"}

// startMessages は開始系インテントの応答文。
type startMessages struct {
	fetchFailed    string
	resumeFailed   string
	resumed        string
	alreadyOngoing string
}

var (
	workStartMessages = startMessages{
		fetchFailed:    apologyPrefix + "Ik kon je laatste tijdregistratie niet ophalen.",
		resumeFailed:   apologyPrefix + "Ik kon je laatste tijdregistratie niet hervatten.",
		resumed:        "Je laatste tijdregistratie is hervat.",
		alreadyOngoing: "Mooi, ik hoef niets te doen. Je hebt al een lopende tijdregistratie.",
	}
	breakStartMessages = startMessages{
		fetchFailed:    apologyPrefix + "Ik kon je laatste pauze niet ophalen.",
		resumeFailed:   apologyPrefix + "Ik kon je pauze niet hervatten.",
		resumed:        "Je kan nu pauze nemen.",
		alreadyOngoing: "Mooi, ik hoef niets te doen. Je hebt al een lopende pauzeregistratie.",
	}
)

func selectedMessage(name string) string {
	return fmt.Sprintf("Ik kan nu je tijdregistraties bij %s bijwerken.", name)
}

func breaksDisabledMessage(name string) string {
	return fmt.Sprintf("Pauzes zijn niet ingeschakeld voor %s. "+
		"Voordat je gebruik kan maken van deze functie moet een beheerder pauzes aanzetten in de organisatie-instellingen op Keeping.nl.", name)
}
