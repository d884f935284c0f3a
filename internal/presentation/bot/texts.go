package bot

const startText = "👋 <b>Бот подключен</b>\n" +
	"Заявки будут приходить сюда.\n\n" +
	"<b>Быстрые команды</b>\n" +
	"• /leads <code>N</code> — последние заявки\n" +
	"• /lead <code>&lt;id&gt;</code> — карточка заявки\n" +
	"• /find <code>&lt;текст&gt;</code> — поиск\n" +
	"• /status <code>&lt;id&gt; &lt;статус&gt;</code> — сменить статус\n" +
	"• /note <code>&lt;id&gt; &lt;текст&gt;</code> — заметка\n" +
	"• /tags <code>&lt;id&gt; &lt;теги&gt;</code> — теги\n" +
	"• /next <code>&lt;id&gt; &lt;YYYY-MM-DD&gt;</code> — следующий контакт\n" +
	"• /stats — сводка статусов\n" +
	"• /help — подробная справка"

const helpText = "🧭 <b>Справка по боту</b>\n\n" +
	"<b>Заявки</b>\n" +
	"• /leads <code>N</code> — последние заявки\n" +
	"• /lead <code>&lt;id&gt;</code> — карточка заявки\n" +
	"• /find <code>&lt;текст&gt;</code> — поиск по заявкам\n\n" +
	"<b>Работа с заявкой</b>\n" +
	"• /status <code>&lt;id&gt; &lt;статус&gt;</code> — сменить статус\n" +
	"• /note <code>&lt;id&gt; &lt;текст&gt;</code> — заметка\n" +
	"• /tags <code>&lt;id&gt; &lt;теги&gt;</code> — теги\n" +
	"• /next <code>&lt;id&gt; &lt;YYYY-MM-DD&gt;</code> — следующий контакт\n\n" +
	"<b>Сводка</b>\n" +
	"• /stats — статистика по статусам\n\n" +
	"<b>Статусы</b>\n" +
	"<code>new, contacted, qualified, call_scheduled, paid, lost, in_progress, closed, archived, auto</code>"
