package extract

// Truncation limits for prompt content.
const (
	maxHomepageChars = 20000
	maxPageChars     = 15000
	maxContextChars  = 10000
	maxLinks         = 150
	maxPageLinks     = 50
)

const discoverySystemText = `Sen uzman bir iş analisti ve web sitesi stratejistisin. Bir web sitesinin ana sayfasını analiz ederek işletmenin sektörünü, chatbot amacını ve taranması gereken sayfaları belirlersin. Her zaman geçerli JSON döndürürsün.`

const discoveryPrompt = `Görevin, bu ana sayfayı analiz ederek:
1. İşletmenin sektörünü ve chatbot amacını belirlemek
2. Şirket bilgilerini çıkarmak
3. Ek tarama için önerilecek sayfaları belirlemek (MAKSIMUM %d sayfa)

Bu aşamada hizmet/ürün ÇIKARMA! Sadece hangi sayfaların taranması gerektiğini belirle.

# BOT PURPOSE CLASSIFICATION RULES

Web sitesini analiz et ve şu soruları sırayla sor:

1. Kullanıcı bir KİŞİ ile mi görüşecek?
   EVET: Doktor, Kuaför, Avukat, Psikolog → bot_purpose: "APPOINTMENT"
2. Kullanıcı bir MEKAN/VARLIK mı kiralayacak?
   EVET: Otel Odası, Restoran Masası, Araç → bot_purpose: "RESERVATION"
3. Kullanıcı bir ETKİNLİK/SEYAHAT için BİLET mi alacak?
   EVET: Sinema, Konser, Uçak, Otobüs → bot_purpose: "BOOKING"
4. Kullanıcı fiziksel bir ÜRÜN mü satın alacak?
   EVET: Pizza, Kıyafet, Elektronik → bot_purpose: "ORDER"
5. Kullanıcı GÖRÜŞME/TEKLİF mi talep edecek?
   EVET: Emlak, Oto Galeri, Danışmanlık → bot_purpose: "LEAD"
6. Kullanıcı sadece BİLGİ mi alacak?
   EVET: SSS, Eğitim, Kamu → bot_purpose: "INFO"
7. Kullanıcı DESTEK/YARDIM mı talep edecek?
   EVET: Teknik Servis, Müşteri Hizmetleri → bot_purpose: "SUPPORT"
   HAYIR: bot_purpose: "INFO" (varsayılan)

# SECTOR EXAMPLES

- HEALTHCARE: Hastane, Klinik, Diş Hekimi → APPOINTMENT
- FOOD (Masa): Restoran, Kafe → RESERVATION
- FOOD (Paket): Pizza, Yemek Siparişi → ORDER
- REAL_ESTATE: Emlak, Gayrimenkul → LEAD
- BEAUTY: Kuaför, Güzellik Salonu → APPOINTMENT
- HOSPITALITY: Otel, Pansiyon → RESERVATION
- ENTERTAINMENT: Sinema, Tiyatro → BOOKING
- LEGAL: Avukat, Hukuk Bürosu → APPOINTMENT
- SERVICE: Tesisatçı, Elektrikçi → APPOINTMENT veya SUPPORT

# JSON SCHEMA

{
  "sector_analysis": {
    "sector": "Ana sektör (Örn: Sağlık, Yemek, Emlak)",
    "sub_sector": "Alt sektör (Örn: Diş Kliniği, İtalyan Restoranı)",
    "business_type": "HEALTHCARE | FOOD | REAL_ESTATE | LEGAL | BEAUTY | EDUCATION | RETAIL | SERVICE | AUTOMOTIVE | FINANCE | HOSPITALITY | FITNESS | ENTERTAINMENT | OTHER",
    "bot_purpose": "APPOINTMENT | RESERVATION | BOOKING | ORDER | LEAD | INFO | SUPPORT",
    "critical_data_type": "SERVICES | PRODUCTS | MENU | PORTFOLIO",
    "bot_personality": "Chatbot'un kişiliği (Örn: Profesyonel ve Yardımsever)",
    "expected_user_intent": ["Kullanıcının muhtemel amaçları"],
    "recommended_features": ["Önerilen chatbot özellikleri"]
  },
  "company_info": {
    "name": "Şirket adı",
    "sector": "Sektör",
    "sub_sector": "Alt sektör",
    "description": "Detaylı açıklama (2-3 cümle)",
    "detected_language": "tr | en (içeriğe bakarak tespit et)",
    "tone_of_voice": "İletişim tonu",
    "phone": "+90...",
    "email": "email@...",
    "address": "Tam adres",
    "working_hours": "Çalışma saatleri",
    "social_media": {"instagram": "...", "facebook": "..."},
    "website": "Web sitesi URL"
  },
  "suggested_pages": [
    {
      "url": "https://...",
      "type": "SERVICE_LISTING | SERVICE_DETAIL | PRODUCT_LISTING | PRODUCT_DETAIL | MENU_PAGE | PRICING_PAGE | CONTACT_PAGE | ABOUT_PAGE | FAQ_PAGE",
      "priority": "CRITICAL | HIGH | MEDIUM | LOW",
      "reason": "Neden önerildiği",
      "expected_data": "Beklenen veri",
      "auto_select": true
    }
  ]
}

# SUGGESTED PAGES RULES

- MAKSIMUM %d sayfa öner
- CRITICAL: Ana hizmet/ürün listesi sayfaları (SERVICE_LISTING, PRODUCT_LISTING, MENU_PAGE)
- HIGH: Fiyat listesi, detaylı hizmet/ürün sayfaları
- MEDIUM: Hakkımızda, İletişim, SSS
- LOW: Blog, Haberler
- auto_select: true → CRITICAL ve HIGH öncelikli sayfalar için
- Önce liste sayfalarını, sonra detay sayfalarını, en son bilgilendirme sayfalarını öner

# WEB SİTESİ İÇERİĞİ

%s

# MEVCUT LİNKLER

%s

Sitenin ANA FONKSİYONUNA odaklan. Restoran hem masa rezervasyonu hem paket servis yapıyorsa, hangisi öncelikliyse ona göre bot_purpose seç.`

const extractionSystemText = `Sen uzman bir veri çıkarıcısısın. Taranmış web sayfalarından hizmet/ürün bilgilerini standart formatta çıkarırsın. Her zaman geçerli JSON döndürürsün. Bilgi uydurmaz, sadece sayfada mevcut olanı çıkarırsın.`

const extractionPrompt = `Görevin, ana sayfa ve taranmış sayfalardan veri çıkarmak ve offering detay linklerini bulmak.

SEKTÖR BİLGİSİ:
%s

MEVCUT FİRMA BİLGİLERİ:
%s

ANA SAYFA İÇERİĞİ:
%s

TARANAN SAYFALAR (%d sayfa):
%s

İSTENEN JSON FORMATI:
{
  "company_info_updates": {
    "phone": "Güncellenmiş telefon (varsa)",
    "email": "Güncellenmiş email (varsa)",
    "address": "Güncellenmiş adres (varsa)",
    "working_hours": "Güncellenmiş çalışma saatleri (varsa)",
    "description": "Daha detaylı açıklama (varsa)",
    "social_media": {}
  },
  "offerings": [
    {
      "name": "Hizmet/Ürün adı",
      "description": "DETAYLI açıklama (sayfada gördüğün TÜM bilgileri ekle)",
      "type": "SERVICE | PRODUCT",
      "price": null veya sayı,
      "currency": "TRY",
      "duration_min": null veya sayı,
      "category": "Kategori",
      "source_url": "https://... (bu hizmetin bulunduğu sayfa)",
      "detail_link": "https://... (bu hizmetin DETAY sayfası linki, varsa)",
      "confidence_level": "HIGH | MEDIUM | LOW",
      "meta_info": {
%s
      }
    }
  ],
  "offering_detail_links": ["https://..."],
  "needs_detail_scraping": false,
  "knowledge_base": [
    {
      "category": "FAQ | ABOUT | CONTACT | TEAM | POLICY | OTHER",
      "title": "Başlık",
      "content": "İçerik özeti",
      "source_url": "https://..."
    }
  ]
}

ÖNEMLİ KURALLAR:

1. OFFERINGS:
   - TÜM hizmet/ürünleri çıkar, description'ı detaylı yaz
   - meta_info'ya sayfada MEVCUT olan her ilgili bilgiyi ekle, UYDURMA
   - Sektöre uygun ama sayfada bulunmayan bir alan varsa değerini null yap
   - Fiyat yoksa price: null (0 YAZMA!)

2. OFFERING_DETAIL_LINKS:
   - Offerings'lerdeki tüm detail_link'leri topla, duplicate'leri temizle
   - Sadece offerings ile ilgili detay sayfaları

3. NEEDS_DETAIL_SCRAPING:
   - Detail scraping SADECE offerings için özel detay sayfaları varsa gerekli
   - Offerings detaylıysa (description > 50 karakter ve meta_info dolu) → false
   - Offerings basitse (sadece isim) ve detail_link varsa → true
   - offering_detail_links boşsa → false
   - VARSAYILAN: false

4. KNOWLEDGE_BASE:
   - İletişim, Hakkımızda, Şubeler, SSS, Politika sayfaları knowledge base için
   - Bu sayfalardan offerings ÇIKARMA, özet çıkar

5. COMPANY_INFO_UPDATES:
   - Sadece YENİ veya DAHA DETAYLI bilgileri ekle`

const enrichmentSystemText = `Sen uzman bir veri zenginleştirme uzmanısın. Mevcut hizmet/ürün kayıtlarını detay sayfalarından gelen bilgilerle zenginleştirirsin. Her zaman geçerli JSON döndürürsün.`

const enrichmentPrompt = `Görevin, mevcut offerings'leri detay sayfalarından gelen bilgilerle zenginleştirmek.

SEKTÖR: %s
ALT SEKTÖR: %s
İŞLETME TİPİ: %s

MEVCUT OFFERINGS:
%s

DETAY SAYFALARI (%d sayfa):
%s

İSTENEN JSON FORMATI:
{
  "enriched_offerings": [
    {
      "name": "...",
      "description": "Daha detaylı açıklama (detay sayfasından)",
      "type": "SERVICE | PRODUCT",
      "price": sayı (detay sayfasından, yoksa null),
      "currency": "TRY",
      "duration_min": sayı (yoksa null),
      "category": "...",
      "source_url": "...",
      "detail_link": "...",
      "confidence_level": "HIGH",
      "meta_info": {
%s
      }
    }
  ]
}

ÖNEMLİ KURALLAR:
1. Her offering için ilgili detay sayfasını bul (önce detail_link ile,
   yoksa offering adı ile eşleştir)
2. Detay sayfasından fiyat, süre, uzman, kapasite, hedef kitle, faydalar,
   gereksinimler, seviye, ekipman, lokasyon gibi TÜM bilgileri çıkar
3. description'ı detay sayfasından güncelle
4. Detay sayfası bulunan offering'in confidence_level'ını HIGH yap
5. Detay sayfası bulunamazsa mevcut offering'i olduğu gibi bırak
6. meta_info'da sadece sayfada MEVCUT bilgileri kullan, UYDURMA`

// sectorMetaExamples returns sector-tuned meta_info examples injected into the
// extraction prompts so the model knows which attributes to look for.
func sectorMetaExamples(businessType string) string {
	switch businessType {
	case "FITNESS":
		return `        "instructor": "Eğitmen adı",
        "capacity": 15,
        "difficulty_level": "Beginner | Intermediate | Advanced",
        "target_audience": "Kadın | Erkek | Herkes",
        "equipment_needed": "Mat, Dumbbell, vb.",
        "benefits": ["Yağ yakımı", "Kas gelişimi"]`
	case "HEALTHCARE":
		return `        "doctor": "Doktor adı",
        "session_count": 1,
        "anesthesia_required": true,
        "recovery_time": "1 gün",
        "insurance_covered": false,
        "preparation_required": "Açlık gerekli"`
	case "FOOD":
		return `        "calories": 450,
        "allergens": ["Gluten", "Süt"],
        "spicy_level": "Hafif | Orta | Acı",
        "portion_size": "Büyük",
        "vegetarian": false,
        "ingredients": ["Domates", "Peynir"]`
	case "BEAUTY":
		return `        "stylist": "Stilist adı",
        "includes": ["Yıkama", "Kesim", "Fön"],
        "gender": "Kadın | Erkek | Unisex",
        "appointment_required": true,
        "products_used": ["Loreal", "Wella"]`
	case "REAL_ESTATE":
		return `        "rooms": 3,
        "sqm": 120,
        "floor": 5,
        "building_age": 10,
        "heating": "Kombi",
        "furnished": false,
        "parking": true`
	case "EDUCATION":
		return `        "duration_weeks": 12,
        "hours_per_week": 4,
        "class_size": 10,
        "level": "A1 | A2 | B1 | B2",
        "certificate": true,
        "instructor": "Eğitmen adı"`
	default:
		return `        "duration_min": 60,
        "warranty": "2 yıl",
        "includes": ["..."],
        "target_audience": "...",
        "features": ["..."]`
	}
}
