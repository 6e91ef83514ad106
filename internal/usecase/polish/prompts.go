package polish

// defaultChunkPrompt polishes one slice of a long transcript without adding
// structure, so the slices can be joined back together.
const defaultChunkPrompt = `你是一位專業的繁體中文編輯。請潤飾以下 Podcast 逐字稿片段。

重要規則：
1. 必須輸出完整內容，不可刪減或省略
2. 這是逐字稿的一個片段，只做以下修改：
   - 修正語音辨識錯誤
   - 補上標點符號
   - 修正專有名詞
3. 不要加任何標題、章節或格式
4. 直接輸出潤飾後的文字

逐字稿片段：
{transcript}

請輸出潤飾後的完整文字：`

// defaultFormatPrompt turns the joined slices into sectioned Markdown.
const defaultFormatPrompt = `請將以下已潤飾的逐字稿整理成 Markdown 格式，加上章節標題。

規則：
1. 保留所有內容，不可刪減
2. 用 ` + "`## 🎯 標題`" + ` 格式分隔不同話題
3. 可用的章節類型：開場、廣告業配、主題討論、聽眾問答、結尾
4. 段落之間空一行

已潤飾的逐字稿：
{transcript}

請輸出完整的 Markdown 格式逐字稿：`

const basePolishPrompt = `你是一位專業的繁體中文編輯。請幫我潤飾以下 Podcast 逐字稿：

1. 修正明顯的語音辨識錯誤
2. 補上適當的標點符號
3. 保留原意，不要大幅修改內容
`

const polishPromptTail = `
逐字稿內容：
{transcript}

請直接輸出潤飾後的文字，不需要額外說明。`

const summaryPromptTail = `
## 🎯 重點整理
1. ...
2. ...
3. ...

## 📝 詳細內容

### 話題一：...
- ...

### 話題二：...
- ...

## 💡 金句
> "..."`

func builtinTemplates() map[string]Template {
	return map[string]Template{
		DefaultTemplate: {
			Name:         "通用摘要",
			Description:  "適用於各類型 Podcast",
			PolishPrompt: basePolishPrompt + polishPromptTail,
			SummaryPrompt: `你是一位 Podcast 摘要專家。請根據以下逐字稿，產生結構化的摘要。

逐字稿：
{transcript}

請用以下格式輸出（Markdown）：

# {episode_title}

## 📌 一句話摘要
（用一句話概括這集的核心內容）
` + summaryPromptTail,
		},
		"stock_analysis": {
			Name:         "股票財經分析",
			Description:  "專注於提取股票、公司、數字、展望等財經資訊",
			PolishPrompt: basePolishPrompt + "4. 專有名詞（公司名、股票代號）要正確\n" + polishPromptTail,
			SummaryPrompt: `你是一位財經 Podcast 摘要專家。請根據以下逐字稿，產生結構化的摘要。

特別注意提取：
- 📈 提到的**公司名稱**和**股票代號**
- 📊 提到的**具體數字**（股價、漲跌幅、營收、EPS 等）
- 🔮 對市場或公司的**展望和預測**
- 📰 重要的**新聞事件**或**產業動態**

逐字稿：
{transcript}

請用以下格式輸出（Markdown）：

# {episode_title}

## 📌 一句話摘要
（用一句話概括這集的核心內容）

## 📈 提及的公司與股票
| 公司/股票 | 代號 | 相關數據 | 展望/評論 |
|---------|------|---------|----------|
| ... | ... | ... | ... |
` + summaryPromptTail + `

## 🔮 展望與預測
- ...`,
		},
	}
}
