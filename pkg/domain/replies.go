package domain

// User-facing strings and fixed prompts. The bot speaks Portuguese to end
// users; prompts sent to the AI backend are fixed per media kind.

const (
	ReplyNotPDF            = "Por favor, envie um arquivo no formato PDF."
	ReplyNoExtractableText = "O PDF parece não conter texto extraível."
	ReplyGenericFailure    = "Desculpe, ocorreu um erro ao processar sua mensagem. Tente novamente mais tarde."

	ReplyProcessingAudio = "Processando o áudio..."
	ReplyProcessingVideo = "Processando o vídeo... Isso pode levar alguns instantes."

	ReplyHistoryCleared        = "Histórico de conversa apagado. Pode começar um novo assunto!"
	ReplyHistoryClearedPartial = "Histórico de conversa apagado localmente, mas o armazenamento remoto não confirmou a remoção."

	ReplyWelcome = `Olá! Eu sou um assistente multimodal. Você pode me enviar:

✍️ Texto — converso com você mantendo o contexto da conversa
📷 Fotos — descrevo o que vejo na imagem
🎙 Áudio ou mensagens de voz — transcrevo na íntegra
🎬 Vídeos — resumo o que acontece e o que é dito
📄 Documentos PDF — extraio o texto e faço um resumo

Use /clear para apagar o histórico da conversa.`
)

const (
	PromptDescribeImage  = "Descreva esta imagem em detalhes. O que você vê?"
	PromptTranscribeFile = "Transcreva o áudio deste arquivo na íntegra."
	PromptSummarizeVideo = "Resuma este vídeo em três pontos principais. Descreva o que acontece visualmente e o que é dito."
	PromptSummarizePDF   = "Resuma o seguinte texto extraído de um documento PDF. Identifique os pontos principais e conclusões:\n\n"
)

const (
	AudioReplyPrefix = "Análise do audio:\n"
	VideoReplyPrefix = "Análise do video:\n"
	PDFReplyPrefix   = "Resumo do PDF:\n\n"
)

// PDFPromptLimit caps the extracted text baked into the summary prompt.
const PDFPromptLimit = 10000
