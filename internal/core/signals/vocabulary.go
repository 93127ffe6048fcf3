package signals

// allowedEmoji is the fixed emoji vocabulary in presentation order.
var allowedEmoji = []string{
	"⚠️", "🔥", "📉", "📈", "💰", "🪙", "💱", "🛢️", "🏦", "🏭", "🧾", "📰",
	"🧠", "🌍", "🛡️", "🧪", "🚀", "🎯", "✅", "❌", "😡", "😢", "😊", "🎉",
	"🥇", "🥈", "🥉", "🪨", "🪵", "🌾", "🌽", "🍬", "🌱", "⛽️", "⚡️", "✈️",
	"🛰️", "🏠", "🐄", "🐟", "📊", "💹", "☢️", "🚢", "💥", "💣", "🎮", "🕹️",
	"🏆", "⚔️", "🇷🇺", "🇺🇸", "🇨🇳", "🇪🇺", "🇬🇧", "🇩🇪", "🇫🇷", "🇮🇹", "🇯🇵", "🇰🇷",
	"🇮🇳", "🇧🇷", "🇹🇷", "🇺🇦", "🇨🇦", "🇦🇺", "🇸🇦", "🇦🇪", "🇮🇱", "🇮🇷", "🇮🇶", "🇪🇬",
	"🇵🇱", "🇨🇿", "🇳🇱", "🇧🇪", "🇪🇸", "🇵🇹", "🇸🇪", "🇳🇴", "🇫🇮", "🇩🇰", "🇨🇭", "🇦🇹",
	"🇲🇽", "🇦🇷", "🇨🇱", "🇨🇴", "🇰🇿", "🇧🇾", "⬆️", "⬇️",
}

// countryWords maps a flag to word patterns; a trailing * matches any word continuation.
var countryWords = []struct {
	flag  string
	words []string
}{
	{"🇷🇺", []string{"росси*", "рф"}},
	{"🇺🇸", []string{"сша", "usa", "united states", "америк*"}},
	{"🇨🇳", []string{"китай*", "кнр", "china"}},
	{"🇪🇺", []string{"евросоюз", "европа", "eu", "eurozone"}},
	{"🇬🇧", []string{"великобрит*", "британ*", "uk", "англи*"}},
	{"🇩🇪", []string{"герман*", "немец*", "deutsch*"}},
	{"🇫🇷", []string{"франц*", "france"}},
	{"🇮🇹", []string{"итал*", "italy"}},
	{"🇯🇵", []string{"япон*", "japan"}},
	{"🇰🇷", []string{"коре*", "korea"}},
	{"🇮🇳", []string{"индия", "индийск*", "india"}},
	{"🇧🇷", []string{"бразил*", "brazil"}},
	{"🇹🇷", []string{"турц*", "turkey"}},
	{"🇺🇦", []string{"украин*", "ukraine"}},
	{"🇨🇦", []string{"канада", "canada"}},
	{"🇦🇺", []string{"австрал*", "australia"}},
	{"🇸🇦", []string{"сауд*", "ksa", "saudi"}},
	{"🇦🇪", []string{"оаэ", "эмират*", "uae"}},
	{"🇮🇱", []string{"израил*", "israel"}},
	{"🇮🇷", []string{"иран", "iran"}},
	{"🇮🇶", []string{"ирак", "iraq"}},
	{"🇪🇬", []string{"египт*", "egypt"}},
	{"🇵🇱", []string{"польш*", "poland"}},
	{"🇨🇿", []string{"чех*", "czech"}},
	{"🇳🇱", []string{"нидерланд*", "голланд*", "netherlands"}},
	{"🇧🇪", []string{"бельг*", "belgium"}},
	{"🇪🇸", []string{"испан*", "spain"}},
	{"🇵🇹", []string{"португал*", "portugal"}},
	{"🇸🇪", []string{"швец*", "sweden"}},
	{"🇳🇴", []string{"норвег*", "norway"}},
	{"🇫🇮", []string{"финлянд*", "finland"}},
	{"🇩🇰", []string{"дани*", "датск*", "denmark"}},
	{"🇨🇭", []string{"швейцар*", "switzerland"}},
	{"🇦🇹", []string{"австр*", "austria"}},
	{"🇲🇽", []string{"мексик*", "mexico"}},
	{"🇦🇷", []string{"аргентин*", "argentina"}},
	{"🇨🇱", []string{"чили", "chile"}},
	{"🇨🇴", []string{"колумб*", "colombia"}},
	{"🇰🇿", []string{"казах*", "kazakhstan"}},
	{"🇧🇾", []string{"беларус*", "рб", "belarus"}},
}
