package ui

import "fmt"

const HelpText = `📜 **Daftar Command:**
- !chat <pesan> ➔ Chat dengan AI
- !radio ➔ Play lofi radio
- !radioindo ➔ Play radio Indonesia
- !play <url_youtube> ➔ Play audio dari YouTube (masuk antrian)
- !skip ➔ Lewati lagu yang sedang diputar
- !stop ➔ Hentikan pemutaran dan kosongkan antrian
- !queue ➔ Lihat antrian lagu
- !help ➔ Menampilkan command list`

const (
	MsgNotInVoice     = "❌ Kamu harus join voice channel dulu."
	MsgInvalidURL     = "❌ URL YouTube tidak valid."
	MsgPlayStarted    = "✅ Memutar audio dari YouTube sekarang!"
	MsgPlayError      = "❌ Terjadi kesalahan saat memutar YouTube."
	MsgJoinFailed     = "❌ Gagal join voice channel."
	MsgNoQueue        = "❌ Tidak ada lagu yang sedang diputar."
	MsgQueueEmpty     = "📭 Antrian kosong."
	MsgSkipped        = "⏭️ Lagu dilewati."
	MsgStopped        = "⏹️ Pemutaran dihentikan dan antrian dikosongkan."
	MsgAIFailed       = "❌ Gagal menghubungi AI agent."
	MsgAISlowDown     = "⏳ Pelan-pelan ya, tunggu sebentar sebelum chat lagi."
	MsgRadioLofi      = "✅ Memutar lofi radio sekarang!"
	MsgRadioIndo      = "✅ Memutar radio Indonesia sekarang!"
	MsgRadioFailed    = "❌ Gagal memutar radio."
	MsgRadioIndoFail  = "❌ Gagal memutar radio Indonesia."
	MsgRadioQueueBusy = "❌ Antrian lagu sedang diputar, gunakan !stop dulu."
)

func QueuedMessage(t string, pos int) string {
	return fmt.Sprintf("✅ **%s** ditambahkan ke antrian (posisi %d).", t, pos)
}

func WelcomeMessage(username string) string {
	return fmt.Sprintf("👋 Selamat datang, %s!", username)
}

func LevelUpMessage(username string, level int) string {
	return fmt.Sprintf("🎉 Selamat %s, kamu naik ke level %d!", username, level)
}
